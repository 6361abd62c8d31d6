// Package telemetry provides Prometheus metrics for the bot.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	WebhookEvents    prometheus.Counter
	CommandsHandled  prometheus.Counter
	BroadcastRuns    prometheus.Counter
	PushesSucceeded  prometheus.Counter
	PushesFailed     prometheus.Counter
	ChatsWithoutDate prometheus.Counter

	// Histograms (seconds)
	BroadcastDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		WebhookEvents = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_webhook_events_total", Help: "Number of webhook events received"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_commands_handled_total", Help: "Number of text messages dispatched to the command interpreter"})
		BroadcastRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_broadcast_runs_total", Help: "Number of scheduled broadcast runs"})
		PushesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_pushes_succeeded_total", Help: "Number of countdown pushes delivered"})
		PushesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_pushes_failed_total", Help: "Number of countdown pushes that failed"})
		ChatsWithoutDate = promauto.NewCounter(prometheus.CounterOpts{Name: "countdown_chats_skipped_total", Help: "Number of chats skipped during broadcast for having no exam date"})
		BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "countdown_broadcast_duration_seconds", Help: "Broadcast run duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// IncCounter increments c when metrics are initialized; safe to call from
// code paths exercised in tests without Init.
func IncCounter(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// ObserveSeconds records d in obs if non-nil.
func ObserveSeconds(obs prometheus.Observer, seconds float64) {
	if obs != nil {
		obs.Observe(seconds)
	}
}
