package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/countdown"
	"exam_countdown_bot/internal/logging"
)

type runner interface {
	Run(ctx context.Context) error
}

// Scheduler fires the dispatcher once per day at a fixed wall-clock time in
// the reference timezone. It is started exactly once during boot; there is no
// lazy per-request initialization.
type Scheduler struct {
	job    runner
	logger *logrus.Entry
	hour   int
	minute int
	now    func() time.Time
}

// NewScheduler constructs a Scheduler that triggers job at hour:minute
// (Asia/Taipei) every day.
func NewScheduler(job runner, hour, minute int, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Scheduler{
		job:    job,
		logger: logger,
		hour:   hour,
		minute: minute,
		now:    func() time.Time { return time.Now().In(countdown.Location()) },
	}
}

// Run blocks until ctx is canceled, waking at each scheduled time to execute
// one broadcast. A failed run is logged and the next one is scheduled anyway.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil || s.job == nil {
		return errors.New("scheduler is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	s.logger.WithFields(logging.Fields{
		"event":  "scheduler_started",
		"hour":   s.hour,
		"minute": s.minute,
	}).Info("daily broadcast scheduler started")

	for {
		next := nextFire(s.now(), s.hour, s.minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.WithField("event", "scheduler_stopped").Info("daily broadcast scheduler stopped")
			return nil
		case <-timer.C:
		}

		if err := s.job.Run(ctx); err != nil {
			s.logger.WithField("event", "broadcast_error").WithError(err).Error("scheduled broadcast run failed")
		}
	}
}

// nextFire returns the next occurrence of hour:minute strictly after now, in
// now's location.
func nextFire(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
