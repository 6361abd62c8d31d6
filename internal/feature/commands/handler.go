// Package commands interprets inbound chat text and answers the two
// recognized countdown commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/countdown"
	"exam_countdown_bot/internal/domain"
	"exam_countdown_bot/internal/logging"
)

const (
	// CommandSetDate prefixes the set-exam-date command; one YYYY-MM-DD
	// argument follows.
	CommandSetDate = "設定考試日期"
	// CommandQuery is the exact query-remaining-days command.
	CommandQuery = "查詢剩餘天數"

	replySetConfirmed = "考試日期已設定為：%s"
	replyBadDate      = "日期格式不正確，請使用YYYY-MM-DD，例如：設定考試日期 2025-10-26"
	replyUsageHint    = "請輸入正確的指令格式：設定考試日期YYYY-MM-DD"
)

type chatStore interface {
	Get(ctx context.Context, chatID string) (domain.Chat, error)
	SetExamDate(ctx context.Context, chatID, kind, examDate string) error
}

type replier interface {
	ReplyText(replyToken, text string) error
}

// Handler routes recognized command text to the store and replies through the
// single-use reply token of the inbound event. Unrecognized text is ignored
// without a reply.
type Handler struct {
	store   chatStore
	replies replier
	logger  *logrus.Entry
	today   func() time.Time
}

// NewHandler constructs a command Handler.
func NewHandler(store chatStore, replies replier, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handler{
		store:   store,
		replies: replies,
		logger:  logger,
		today:   countdown.Today,
	}
}

// HandleText processes one inbound text message. Validation problems are
// answered to the user; infrastructure failures are returned for the caller
// to log and never produce a user-facing reply.
func (h *Handler) HandleText(ctx context.Context, chatID, kind, text, replyToken string) error {
	if h == nil || h.store == nil || h.replies == nil {
		return errors.New("command handler is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, CommandSetDate):
		return h.handleSetDate(ctx, chatID, kind, text, replyToken)
	case text == CommandQuery:
		return h.handleQuery(ctx, chatID, replyToken)
	default:
		// Not addressed to the bot; stay silent, especially in groups.
		return nil
	}
}

func (h *Handler) handleSetDate(ctx context.Context, chatID, kind, text, replyToken string) error {
	args := strings.Fields(strings.TrimPrefix(text, CommandSetDate))

	if len(args) != 1 {
		h.reply(chatID, replyToken, replyUsageHint)
		return nil
	}

	dateArg := args[0]
	if _, err := countdown.ParseDate(dateArg); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "set_date_rejected",
			"chat_id": chatID,
			"arg":     dateArg,
		}).Debug("rejected malformed exam date")
		h.reply(chatID, replyToken, replyBadDate)
		return nil
	}

	if err := h.store.SetExamDate(ctx, chatID, kind, dateArg); err != nil {
		return fmt.Errorf("store exam date for chat %s: %w", chatID, err)
	}

	h.logger.WithFields(logging.Fields{
		"event":     "exam_date_set",
		"chat_id":   chatID,
		"exam_date": dateArg,
	}).Info("exam date configured")

	h.reply(chatID, replyToken, fmt.Sprintf(replySetConfirmed, dateArg))
	return nil
}

func (h *Handler) handleQuery(ctx context.Context, chatID, replyToken string) error {
	var examDate *string

	chat, err := h.store.Get(ctx, chatID)
	switch {
	case err == nil:
		examDate = chat.ExamDate
	case errors.Is(err, domain.ErrChatNotFound):
		// Unregistered chat queries behave as "no date configured".
	default:
		return fmt.Errorf("load chat %s: %w", chatID, err)
	}

	h.reply(chatID, replyToken, countdown.Message(examDate, h.today()))
	return nil
}

// reply sends the single reply for this event. A delivery failure is logged
// and swallowed; the reply token is spent either way.
func (h *Handler) reply(chatID, replyToken, text string) {
	if err := h.replies.ReplyText(replyToken, text); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "reply_failed",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send command reply")
	}
}
