package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// IndexHandler triggers an on-demand reconciliation cycle for one course and
// date, outside the scheduler's normal cadence.
type IndexHandler struct {
	courses    CourseStore
	indexer    *teetime.Indexer
	adapterFor AdapterFactory
	logger     *logging.Logger
}

func NewIndexHandler(courses CourseStore, indexer *teetime.Indexer, adapterFor AdapterFactory, logger *logging.Logger) *IndexHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &IndexHandler{
		courses:    courses,
		indexer:    indexer,
		adapterFor: adapterFor,
		logger:     logger,
	}
}

// IndexResponse reports one reconciliation cycle's writes.
type IndexResponse struct {
	CourseID  string `json:"course_id"`
	Date      string `json:"date"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Zeroed    int    `json:"zeroed"`
}

// Run handles POST /webhooks/index/{courseID}?date=YYYY-MM-DD. The date
// defaults to tomorrow.
func (h *IndexHandler) Run(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	date := time.Now().UTC().AddDate(0, 0, 1)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	date = teetime.DateUTC(date.Year(), date.Month(), date.Day())

	c, err := h.courses.Get(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown course")
			return
		}
		h.logger.Error("course lookup failed", "course_id", courseID, "error", err)
		writeError(w, http.StatusInternalServerError, "course lookup failed")
		return
	}

	api, err := h.adapterFor(c.ProviderID, c.ProviderConfig)
	if err != nil {
		h.logger.Error("adapter construction failed", "course_id", c.ID, "provider", c.ProviderID, "error", err)
		writeError(w, http.StatusInternalServerError, "provider unavailable")
		return
	}

	res, err := h.indexer.Run(r.Context(), api, teetime.Course{
		ID:         c.ID,
		ProviderID: c.ProviderID,
		TeeSheetID: c.TeeSheetID,
	}, date)
	if err != nil {
		h.logger.Error("reconciliation cycle failed", "course_id", c.ID, "error", err)
		writeError(w, http.StatusBadGateway, "reconciliation failed")
		return
	}

	writeJSON(w, http.StatusOK, IndexResponse{
		CourseID:  c.ID,
		Date:      date.Format("2006-01-02"),
		Fetched:   res.Fetched,
		Inserted:  res.Inserted,
		Updated:   res.Updated,
		Unchanged: res.Unchanged,
		Zeroed:    res.Zeroed,
	})
}
