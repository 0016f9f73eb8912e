package teetime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// AvailabilitySource is the slice of provider.API the indexer needs.
type AvailabilitySource interface {
	ProviderID() string
	GetToken(ctx context.Context) (string, error)
	FetchTeeTimes(ctx context.Context, token string, q provider.Query) ([]provider.TeeTimeSnapshot, error)
}

// Course identifies one course/tee-sheet pair on a provider.
type Course struct {
	ID         string
	ProviderID string
	TeeSheetID string
}

// Result summarizes one reconciliation cycle.
type Result struct {
	Fetched   int
	Inserted  int
	Updated   int
	Unchanged int
	Zeroed    int
}

// Indexer reconciles the local tee-time cache against a provider's live feed
// for one course/day at a time. Cycles are idempotent: re-running against an
// unchanged feed produces zero writes.
type Indexer struct {
	store        Store
	logger       *logging.Logger
	metrics      *metrics.IndexerMetrics
	fetchRetries int
}

func NewIndexer(store Store, logger *logging.Logger, m *metrics.IndexerMetrics) *Indexer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Indexer{
		store:        store,
		logger:       logger,
		metrics:      m,
		fetchRetries: 3,
	}
}

// Run executes one reconciliation cycle for the course and date.
func (ix *Indexer) Run(ctx context.Context, src AvailabilitySource, course Course, date time.Time) (Result, error) {
	started := time.Now()
	res, err := ix.run(ctx, src, course, date)
	status := "ok"
	if err != nil {
		status = "error"
	}
	ix.metrics.ObserveCycle(src.ProviderID(), status, time.Since(started).Seconds())
	return res, err
}

func (ix *Indexer) run(ctx context.Context, src AvailabilitySource, course Course, date time.Time) (Result, error) {
	var res Result

	local, err := ix.store.ListForCourseDate(ctx, course.ID, date)
	if err != nil {
		return res, fmt.Errorf("teetime: load local cache: %w", err)
	}

	live, err := ix.fetchWithRetry(ctx, src, provider.Query{
		CourseID:   course.ID,
		TeeSheetID: course.TeeSheetID,
		Date:       date,
	})
	if err != nil {
		return res, err
	}
	res.Fetched = len(live)

	localByProviderID := make(map[string]TeeTime, len(local))
	for _, row := range local {
		localByProviderID[row.ProviderTeeTimeID] = row
	}
	liveIDs := make(map[string]struct{}, len(live))
	for _, s := range live {
		liveIDs[s.ProviderTeeTimeID] = struct{}{}
	}

	// Slots the provider stopped listing: zero the first-hand inventory but
	// keep the row, so resale spots and booking references stay intact. Rows
	// already at zero are skipped to keep re-polls write-free.
	var vanished []string
	for _, row := range local {
		if _, ok := liveIDs[row.ProviderTeeTimeID]; !ok && row.AvailableFirstHandSpots != 0 {
			vanished = append(vanished, row.ProviderTeeTimeID)
		}
	}
	if err := ix.store.ZeroFirstHandSpots(ctx, course.ID, vanished); err != nil {
		return res, err
	}
	res.Zeroed = len(vanished)

	for _, snapshot := range live {
		existing, ok := localByProviderID[snapshot.ProviderTeeTimeID]
		if !ok {
			if err := ix.store.Upsert(ctx, FromSnapshot(course.ID, snapshot)); err != nil {
				return res, err
			}
			res.Inserted++
			continue
		}
		if existing.Keys().Equal(SnapshotKeys(snapshot)) {
			res.Unchanged++
			continue
		}
		updated := existing
		updated.Date = snapshot.Date
		updated.ProviderDate = snapshot.ProviderDate
		updated.Time = snapshot.Time
		updated.NumberOfHoles = snapshot.NumberOfHoles
		updated.MaxPlayersPerBooking = snapshot.MaxPlayersPerBooking
		updated.AvailableFirstHandSpots = snapshot.AvailableFirstHandSpots
		updated.GreenFeeCents = snapshot.GreenFeeCents
		updated.CartFeeCents = snapshot.CartFeeCents
		updated.TaxCents = snapshot.TaxCents
		if err := ix.store.Upsert(ctx, updated); err != nil {
			return res, err
		}
		res.Updated++
	}

	ix.metrics.ObserveWrites(src.ProviderID(), res.Inserted, res.Updated, res.Zeroed)
	ix.logger.Info("reconciliation cycle complete",
		"provider", src.ProviderID(),
		"course_id", course.ID,
		"date", date.Format("2006-01-02"),
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"zeroed", res.Zeroed,
	)
	return res, nil
}

// fetchWithRetry retries transient fetch failures with exponential backoff.
// Auth and other 4xx failures surface immediately; the token manager has its
// own 403 reaction and the caller owns any retry with the refreshed token.
func (ix *Indexer) fetchWithRetry(ctx context.Context, src AvailabilitySource, q provider.Query) ([]provider.TeeTimeSnapshot, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	var lastErr error
	for attempt := 0; attempt < ix.fetchRetries; attempt++ {
		token, err := src.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("teetime: get token: %w", err)
		}
		live, err := src.FetchTeeTimes(ctx, token, q)
		if err == nil {
			return live, nil
		}
		lastErr = err

		if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status < 500 {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		sleep := backoffCfg.NextBackOff()
		ix.logger.Warn("availability fetch failed, backing off",
			"provider", src.ProviderID(),
			"course_id", q.CourseID,
			"attempt", attempt+1,
			"sleep", sleep.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("teetime: fetch availability: %w", lastErr)
}
