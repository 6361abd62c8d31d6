// Package webhook hosts the HTTP surface of the bot: the signature-verified
// LINE callback, the external cron trigger, and diagnostics endpoints.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/domain"
	"exam_countdown_bot/internal/logging"
	"exam_countdown_bot/internal/telemetry"
)

const (
	mongoPingTimeout  = 2 * time.Second
	readHeaderTimeout = 2 * time.Second
	jobRunTimeout     = 60 * time.Second
)

// CommandHandler processes inbound text commands.
type CommandHandler interface {
	HandleText(ctx context.Context, chatID, kind, text, replyToken string) error
}

// LifecycleHandler processes follow and join events.
type LifecycleHandler interface {
	HandleFollow(ctx context.Context, userID, replyToken string) error
	HandleJoin(ctx context.Context, groupID, replyToken string) error
}

// BroadcastRunner triggers one fan-out run, for the external cron endpoint.
type BroadcastRunner interface {
	Run(ctx context.Context) error
}

// MongoChecker defines the subset of store behavior required for health.
type MongoChecker interface {
	Ping(ctx context.Context) error
}

// StatsProvider reports chat counts for diagnostics.
type StatsProvider interface {
	CountChats(ctx context.Context) (int64, error)
	CountConfigured(ctx context.Context) (int64, error)
}

// parseWebhookRequest is overridable for tests.
var parseWebhookRequest = func(channelSecret string, r *http.Request) (*webhook.CallbackRequest, error) {
	return webhook.ParseRequest(channelSecret, r)
}

// Server owns the HTTP server and routes webhook events to the feature
// handlers.
type Server struct {
	server        *http.Server
	logger        *logrus.Entry
	channelSecret string
	cronSecret    string
	commands      CommandHandler
	lifecycle     LifecycleHandler
	broadcaster   BroadcastRunner
	mongoChecker  MongoChecker
	stats         StatsProvider
}

type healthResponse struct {
	Status string `json:"status"`
	Mongo  string `json:"mongo,omitempty"`
}

type jobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statsResponse struct {
	Chats      int64 `json:"chats"`
	Configured int64 `json:"configured"`
}

// Deps bundles the collaborators the server dispatches to.
type Deps struct {
	ChannelSecret string
	CronSecret    string
	Commands      CommandHandler
	Lifecycle     LifecycleHandler
	Broadcaster   BroadcastRunner
	MongoChecker  MongoChecker
	Stats         StatsProvider
}

// NewServer constructs the webhook server listening on the provided port.
func NewServer(port int, deps Deps, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger:        logger,
		channelSecret: deps.ChannelSecret,
		cronSecret:    deps.CronSecret,
		commands:      deps.Commands,
		lifecycle:     deps.Lifecycle,
		broadcaster:   deps.Broadcaster,
		mongoChecker:  deps.MongoChecker,
		stats:         deps.Stats,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", srv.handleCallback)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/wakeup", srv.handleWakeup)
	mux.HandleFunc("/jobs/daily", srv.handleDailyJob)
	mux.HandleFunc("/stats", srv.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the webhook server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "webhook_listen",
		"addr":  s.server.Addr,
	}).Info("starting webhook server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "webhook_stopped").Info("webhook server stopped")
			return nil
		}

		return fmt.Errorf("webhook server listen: %w", err)
	}

	s.logger.WithField("event", "webhook_stopped").Info("webhook server stopped")
	return nil
}

// Shutdown gracefully stops the webhook server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	callback, err := parseWebhookRequest(s.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			s.logger.WithField("event", "invalid_signature").Warn("rejected webhook with invalid signature")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.logger.WithField("event", "webhook_parse_error").WithError(err).Error("failed to parse webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, event := range callback.Events {
		telemetry.IncCounter(telemetry.WebhookEvents)
		s.dispatchEvent(r.Context(), event)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) dispatchEvent(ctx context.Context, event webhook.EventInterface) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			return
		}

		chatID, kind := resolveSource(e.Source)
		if chatID == "" {
			return
		}

		telemetry.IncCounter(telemetry.CommandsHandled)
		if err := s.commands.HandleText(ctx, chatID, kind, text.Text, e.ReplyToken); err != nil {
			s.logger.WithFields(logging.Fields{
				"event":   "command_error",
				"chat_id": chatID,
			}).WithError(err).Error("command handling failed")
		}

	case webhook.FollowEvent:
		userID, kind := resolveSource(e.Source)
		if userID == "" || kind != domain.KindUser {
			return
		}

		if err := s.lifecycle.HandleFollow(ctx, userID, e.ReplyToken); err != nil {
			s.logger.WithFields(logging.Fields{
				"event":   "follow_error",
				"chat_id": userID,
			}).WithError(err).Error("follow handling failed")
		}

	case webhook.JoinEvent:
		groupID, kind := resolveSource(e.Source)
		if groupID == "" || kind != domain.KindGroup {
			return
		}

		if err := s.lifecycle.HandleJoin(ctx, groupID, e.ReplyToken); err != nil {
			s.logger.WithFields(logging.Fields{
				"event":   "join_error",
				"chat_id": groupID,
			}).WithError(err).Error("join handling failed")
		}
	}
}

// resolveSource maps a webhook source to the chat id owning the countdown
// state. Group and room conversations share one date among their members;
// anything else falls back to the individual user id.
func resolveSource(source webhook.SourceInterface) (string, string) {
	switch src := source.(type) {
	case webhook.GroupSource:
		return src.GroupId, domain.KindGroup
	case *webhook.GroupSource:
		return src.GroupId, domain.KindGroup
	case webhook.RoomSource:
		return src.RoomId, domain.KindGroup
	case *webhook.RoomSource:
		return src.RoomId, domain.KindGroup
	case webhook.UserSource:
		return src.UserId, domain.KindUser
	case *webhook.UserSource:
		return src.UserId, domain.KindUser
	default:
		return "", ""
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK

	if s.mongoChecker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), mongoPingTimeout)
		defer cancel()

		if err := s.mongoChecker.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Mongo = "unreachable"
			code = http.StatusServiceUnavailable
			s.logger.WithField("event", "health_mongo_error").WithError(err).Warn("mongo health check failed")
		} else {
			resp.Mongo = "ok"
		}
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleWakeup(w http.ResponseWriter, r *http.Request) {
	s.logger.WithField("event", "wakeup").Debug("wakeup endpoint hit")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleDailyJob lets an external cron caller trigger the fan-out when no
// in-process scheduler is desired. Protected by a bearer token when
// CRON_SECRET is configured.
func (s *Server) handleDailyJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.cronSecret != "" {
		expected := "Bearer " + s.cronSecret
		provided := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			writeJSON(w, http.StatusUnauthorized, jobResponse{Status: "error", Message: "unauthorized"})
			return
		}
	}

	if s.broadcaster == nil {
		writeJSON(w, http.StatusInternalServerError, jobResponse{Status: "error", Message: "broadcast not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), jobRunTimeout)
	defer cancel()

	if err := s.broadcaster.Run(ctx); err != nil {
		s.logger.WithField("event", "cron_job_error").WithError(err).Error("externally triggered broadcast failed")
		writeJSON(w, http.StatusInternalServerError, jobResponse{Status: "error", Message: "job execution failed"})
		return
	}

	writeJSON(w, http.StatusOK, jobResponse{Status: "success", Message: "job executed successfully"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.stats == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	chats, err := s.stats.CountChats(r.Context())
	if err != nil {
		s.logger.WithField("event", "stats_error").WithError(err).Error("failed to count chats")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	configured, err := s.stats.CountConfigured(r.Context())
	if err != nil {
		s.logger.WithField("event", "stats_error").WithError(err).Error("failed to count configured chats")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{Chats: chats, Configured: configured})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
