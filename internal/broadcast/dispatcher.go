// Package broadcast fans the daily countdown message out to every chat with a
// configured exam date.
package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/countdown"
	"exam_countdown_bot/internal/domain"
	"exam_countdown_bot/internal/logging"
	"exam_countdown_bot/internal/store"
	"exam_countdown_bot/internal/telemetry"
)

type chatLister interface {
	ForEach(ctx context.Context, fn func(domain.Chat) bool) error
}

type pusher interface {
	PushText(to, text string) error
}

// Dispatcher performs one broadcast run: enumerate chats, skip the ones
// without an exam date, push a freshly formatted countdown message to the
// rest. Each push stands alone; one failed recipient never aborts the run and
// nothing is retried until the next scheduled run.
type Dispatcher struct {
	chats  chatLister
	pushes pusher
	logger *logrus.Entry
	today  func() time.Time
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(chats chatLister, pushes pusher, logger *logrus.Entry) *Dispatcher {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Dispatcher{
		chats:  chats,
		pushes: pushes,
		logger: logger,
		today:  countdown.Today,
	}
}

// Run executes one fan-out pass. A missing or unavailable store downgrades to
// a logged skip so the scheduler stays alive.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d == nil || d.pushes == nil {
		return errors.New("dispatcher is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	start := time.Now()
	today := d.today()

	var sent, failed, skipped int

	err := d.listChats(ctx, func(chat domain.Chat) bool {
		if !chat.HasExamDate() {
			skipped++
			telemetry.IncCounter(telemetry.ChatsWithoutDate)
			return true
		}

		message := countdown.Message(chat.ExamDate, today)
		if err := d.pushes.PushText(chat.ChatID, message); err != nil {
			failed++
			telemetry.IncCounter(telemetry.PushesFailed)
			d.logger.WithFields(logging.Fields{
				"event":   "push_failed",
				"chat_id": chat.ChatID,
			}).WithError(err).Error("failed to push countdown message")
			return true
		}

		sent++
		telemetry.IncCounter(telemetry.PushesSucceeded)
		d.logger.WithFields(logging.Fields{
			"event":   "push_sent",
			"chat_id": chat.ChatID,
		}).Debug("pushed countdown message")
		return true
	})
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			d.logger.WithField("event", "broadcast_skipped").Error("chat store unavailable, skipping broadcast run")
			return nil
		}
		return err
	}

	telemetry.IncCounter(telemetry.BroadcastRuns)
	telemetry.ObserveSeconds(telemetry.BroadcastDuration, time.Since(start).Seconds())

	d.logger.WithFields(logging.Fields{
		"event":   "broadcast_complete",
		"sent":    sent,
		"failed":  failed,
		"skipped": skipped,
	}).Info("broadcast run finished")

	return nil
}

func (d *Dispatcher) listChats(ctx context.Context, fn func(domain.Chat) bool) error {
	if d.chats == nil {
		return store.ErrUnavailable
	}

	return d.chats.ForEach(ctx, fn)
}
