// Package lifecycle registers chats when the bot is followed by a user or
// joins a group, and greets them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/domain"
	"exam_countdown_bot/internal/logging"
)

const (
	welcomeStickerPackageID = "11538"
	welcomeStickerID        = "51626494"

	welcomeUser = "哈囉！謝謝你加入這個倒數計時小幫手😎！\n\n🍊你可以輸入: \n【設定考試日期YYYY-MM-DD】來設定你的重要日期\n\n例如：\n'設定考試日期 2025-10-26'\n\n🍊隨時輸入 '查詢剩餘天數' 就能知道距離考試還有多久喔！\n\n準備好了嗎？我們一起努力！\nd(`･∀･)b"

	welcomeGroup = "哈囉！大家好！\n我是你們的倒數計時小幫手😎，很高興加入這個群組！\n\n🍊群組裡面的任何一位成員都可以輸入【設定考試日期YYYY-MM-DD】來設定日期\n\n例如：\n'設定考試日期 2025-10-26'\n\n🍊隨時輸入【查詢剩餘天數】就能知道距離考試還有多久喔！\n\n讓我們一起為目標衝刺吧！\nd(`･∀･)b"
)

type chatRegistrar interface {
	EnsureChat(ctx context.Context, chatID, kind string) (bool, error)
}

type replier interface {
	ReplyTextWithSticker(replyToken, text, packageID, stickerID string) error
}

// Handler reacts to follow and join events. Registration is a merge-upsert,
// so a returning chat keeps any exam date it configured before leaving.
type Handler struct {
	store   chatRegistrar
	replies replier
	logger  *logrus.Entry
}

// NewHandler constructs a lifecycle Handler.
func NewHandler(store chatRegistrar, replies replier, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handler{
		store:   store,
		replies: replies,
		logger:  logger,
	}
}

// HandleFollow registers an individual chat and sends the welcome reply.
func (h *Handler) HandleFollow(ctx context.Context, userID, replyToken string) error {
	return h.register(ctx, userID, domain.KindUser, replyToken, welcomeUser)
}

// HandleJoin registers a group chat and sends the group welcome reply.
func (h *Handler) HandleJoin(ctx context.Context, groupID, replyToken string) error {
	return h.register(ctx, groupID, domain.KindGroup, replyToken, welcomeGroup)
}

func (h *Handler) register(ctx context.Context, chatID, kind, replyToken, welcome string) error {
	if h == nil || h.store == nil || h.replies == nil {
		return errors.New("lifecycle handler is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	created, err := h.store.EnsureChat(ctx, chatID, kind)
	if err != nil {
		return fmt.Errorf("register chat %s: %w", chatID, err)
	}

	if created {
		h.logger.WithFields(logging.Fields{
			"event":     "chat_registered",
			"chat_id":   chatID,
			"chat_kind": kind,
		}).Info("registered new chat")
	} else {
		h.logger.WithFields(logging.Fields{
			"event":     "chat_rejoined",
			"chat_id":   chatID,
			"chat_kind": kind,
		}).Debug("chat already registered")
	}

	if err := h.replies.ReplyTextWithSticker(replyToken, welcome, welcomeStickerPackageID, welcomeStickerID); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "welcome_failed",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send welcome message")
	}

	return nil
}
