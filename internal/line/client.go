// Package line wraps the LINE Messaging API client behind the small reply and
// push surface the bot actually uses.
package line

import (
	"errors"
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/config"
	"exam_countdown_bot/internal/logging"
)

// messagingAPI captures the SDK calls the client depends on so tests can stub
// them without network access.
type messagingAPI interface {
	ReplyMessage(request *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(request *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// createMessagingAPI is overridable for tests.
var createMessagingAPI = func(channelToken string) (messagingAPI, error) {
	return messaging_api.NewMessagingApiAPI(channelToken)
}

// Client sends replies and pushes through the LINE Messaging API.
type Client struct {
	api    messagingAPI
	logger *logrus.Entry
}

// NewClient initializes the Messaging API client from configuration.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.ChannelToken) == "" {
		return nil, errors.New("channel access token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	api, err := createMessagingAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("init line messaging client: %w", err)
	}

	return &Client{
		api:    api,
		logger: logger,
	}, nil
}

// ReplyText answers an inbound event with a single text message. The reply
// token is single-use; the platform rejects a second reply for the same event.
func (c *Client) ReplyText(replyToken, text string) error {
	if c == nil || c.api == nil {
		return errors.New("line client is not initialized")
	}
	if replyToken == "" {
		return errors.New("reply token is required")
	}

	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}

	return nil
}

// ReplyTextWithSticker answers an inbound event with a text message followed
// by a sticker.
func (c *Client) ReplyTextWithSticker(replyToken, text, packageID, stickerID string) error {
	if c == nil || c.api == nil {
		return errors.New("line client is not initialized")
	}
	if replyToken == "" {
		return errors.New("reply token is required")
	}

	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
			messaging_api.StickerMessage{
				PackageId: packageID,
				StickerId: stickerID,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message with sticker: %w", err)
	}

	return nil
}

// PushText sends a text message to a chat outside of any inbound event, used
// by the scheduled broadcast.
func (c *Client) PushText(to, text string) error {
	if c == nil || c.api == nil {
		return errors.New("line client is not initialized")
	}
	if to == "" {
		return errors.New("push target is required")
	}

	_, err := c.api.PushMessage(&messaging_api.PushMessageRequest{
		To: to,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	}, "")
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}

	return nil
}
