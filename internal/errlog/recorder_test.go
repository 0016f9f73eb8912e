package errlog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestRecordInsertsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO provider_error_logs").
		WithArgs(pgxmock.AnyArg(), "user-1", "https://api.example.com/teetimes", "boom", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := NewRecorder(mock, nil)
	rec.Record(context.Background(), Entry{
		UserID:     "user-1",
		URL:        "https://api.example.com/teetimes",
		Message:    "boom",
		StackTrace: Capture(),
		Details:    map[string]any{"status": 500},
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordNeverFailsCaller(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO provider_error_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	rec := NewRecorder(mock, nil)
	// Must not panic or surface the insert failure.
	rec.Record(context.Background(), Entry{Message: "boom"})
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), Entry{Message: "ignored"})
}

func TestCaptureReturnsStack(t *testing.T) {
	if Capture() == "" {
		t.Fatal("expected a stack trace")
	}
}
