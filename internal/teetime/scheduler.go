package teetime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// CourseLister supplies the set of courses to keep indexed.
type CourseLister interface {
	ListActive(ctx context.Context) ([]course.Course, error)
}

// AdapterFactory builds the availability source for a course.
type AdapterFactory func(providerID string, rawCfg json.RawMessage) (AvailabilitySource, error)

// Scheduler drives reconciliation cycles for every active course across the
// polling horizon. Near dates poll often, far dates rarely, per PollInterval;
// cycles for different courses run concurrently up to the worker cap.
type Scheduler struct {
	courses     CourseLister
	indexer     *Indexer
	adapterFor  AdapterFactory
	horizonDays int
	workers     int
	minInterval time.Duration
	logger      *logging.Logger

	mu      sync.Mutex
	nextRun map[string]time.Time
}

func NewScheduler(courses CourseLister, indexer *Indexer, adapterFor AdapterFactory, horizonDays, workers int, minInterval time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if horizonDays < 1 {
		horizonDays = 15
	}
	if workers < 1 {
		workers = 4
	}
	return &Scheduler{
		courses:     courses,
		indexer:     indexer,
		adapterFor:  adapterFor,
		horizonDays: horizonDays,
		workers:     workers,
		minInterval: minInterval,
		logger:      logger,
		nextRun:     make(map[string]time.Time),
	}
}

// Start runs the scheduling loop until ctx is cancelled. The first sweep runs
// immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.runDue(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue fans the due (course, date) pairs out over the worker pool and waits
// for the sweep to finish.
func (s *Scheduler) runDue(ctx context.Context) {
	courses, err := s.courses.ListActive(ctx)
	if err != nil {
		s.logger.Error("listing active courses failed", "error", err)
		return
	}

	now := time.Now().UTC()
	today := DateUTC(now.Year(), now.Month(), now.Day())

	p := pool.New().WithMaxGoroutines(s.workers)
	for _, c := range courses {
		src, err := s.adapterFor(c.ProviderID, c.ProviderConfig)
		if err != nil {
			s.logger.Error("adapter construction failed",
				"course_id", c.ID, "provider", c.ProviderID, "error", err)
			continue
		}
		for daysOut := 1; daysOut <= s.horizonDays; daysOut++ {
			date := today.AddDate(0, 0, daysOut)
			key := c.ID + ":" + date.Format("2006-01-02")
			if !s.due(key, now) {
				continue
			}

			ixCourse := Course{ID: c.ID, ProviderID: c.ProviderID, TeeSheetID: c.TeeSheetID}
			interval := s.interval(daysOut)
			p.Go(func() {
				if _, err := s.indexer.Run(ctx, src, ixCourse, date); err != nil {
					s.logger.Error("reconciliation cycle failed",
						"course_id", ixCourse.ID,
						"date", date.Format("2006-01-02"),
						"error", err,
					)
				}
				s.schedule(key, time.Now().UTC().Add(interval))
			})
		}
	}
	p.Wait()
}

func (s *Scheduler) interval(daysOut int) time.Duration {
	interval := PollInterval(daysOut)
	if interval < s.minInterval {
		interval = s.minInterval
	}
	return interval
}

func (s *Scheduler) due(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.nextRun[key]
	if ok && now.Before(next) {
		return false
	}
	// Claim the slot so an overlapping sweep does not double-run it.
	s.nextRun[key] = now.Add(s.minInterval)
	return true
}

func (s *Scheduler) schedule(key string, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun[key] = next
}
