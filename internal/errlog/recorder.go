// Package errlog persists structured provider-failure records. This is the
// system's durable failure audit trail: handlers upstream swallow errors after
// turning them into HTTP responses, so every adapter failure path records here
// before the error propagates.
package errlog

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// PgxPool is the subset of pgxpool.Pool the recorder needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is one failure record.
type Entry struct {
	UserID     string
	URL        string
	Message    string
	StackTrace string
	Details    map[string]any
}

// Capture returns the current goroutine stack for an Entry.
func Capture() string {
	return string(debug.Stack())
}

// Recorder writes entries to provider_error_logs and mirrors them to the
// structured log. Recording never fails the caller.
type Recorder struct {
	pool   PgxPool
	logger *logging.Logger
}

func NewRecorder(pool PgxPool, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{pool: pool, logger: logger}
}

// Record persists the entry. A nil recorder or a failed insert degrades to
// log-only so the original error still reaches the caller.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil {
		return
	}

	r.logger.Error("provider error",
		"user_id", e.UserID,
		"url", e.URL,
		"message", e.Message,
		"details", e.Details,
	)

	if r.pool == nil {
		return
	}

	details, err := json.Marshal(e.Details)
	if err != nil {
		details = []byte("{}")
	}

	query := `
		INSERT INTO provider_error_logs (id, user_id, url, message, stack_trace, details)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, uuid.New(), e.UserID, e.URL, e.Message, e.StackTrace, details); err != nil {
		r.logger.Error("error log insert failed", "error", err)
	}
}
