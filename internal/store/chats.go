package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"exam_countdown_bot/internal/domain"
)

// chatCollection captures the collection operations the repository needs,
// keeping tests free of a live Mongo deployment.
type chatCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// ChatRepository persists and retrieves per-chat countdown state. All writes
// are merge-upserts: fields not named by the operation are never touched, so
// a returning chat keeps its configured exam date.
type ChatRepository struct {
	chats chatCollection
}

// NewChatRepository constructs a ChatRepository over the chats collection.
func NewChatRepository(chats chatCollection) *ChatRepository {
	return &ChatRepository{chats: chats}
}

// Available reports whether the repository has a usable collection handle.
func (r *ChatRepository) Available() bool {
	return r != nil && r.chats != nil
}

// Get fetches a chat record by its platform id. Returns
// domain.ErrChatNotFound when no record exists.
func (r *ChatRepository) Get(ctx context.Context, chatID string) (domain.Chat, error) {
	if !r.Available() {
		return domain.Chat{}, ErrUnavailable
	}
	if ctx == nil {
		return domain.Chat{}, errors.New("context is required")
	}
	if chatID == "" {
		return domain.Chat{}, errors.New("chat id is required")
	}

	result := r.chats.FindOne(ctx, bson.M{"chat_id": chatID})
	if result == nil {
		return domain.Chat{}, errors.New("find chat returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Chat{}, domain.ErrChatNotFound
		}
		return domain.Chat{}, fmt.Errorf("find chat: %w", err)
	}

	var chat domain.Chat
	if err := result.Decode(&chat); err != nil {
		return domain.Chat{}, fmt.Errorf("decode chat: %w", err)
	}

	return chat, nil
}

// EnsureChat upserts the chat record, creating it with a null exam date when
// absent and only refreshing last_seen_at when it already exists. Applying the
// same lifecycle event twice therefore never clears a configured date.
func (r *ChatRepository) EnsureChat(ctx context.Context, chatID, kind string) (bool, error) {
	if !r.Available() {
		return false, ErrUnavailable
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if chatID == "" {
		return false, errors.New("chat id is required")
	}
	if kind != domain.KindUser && kind != domain.KindGroup {
		return false, fmt.Errorf("invalid chat kind %q", kind)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"last_seen_at": now,
		},
		"$setOnInsert": bson.M{
			"chat_id":    chatID,
			"type":       kind,
			"exam_date":  nil,
			"created_at": now,
			"updated_at": now,
		},
	}

	result, err := r.chats.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure chat: %w", err)
	}

	return result != nil && result.UpsertedCount > 0, nil
}

// SetExamDate upserts only the exam date for the chat, creating the record on
// the fly when the chat was never registered. The date must already be
// validated by the caller.
func (r *ChatRepository) SetExamDate(ctx context.Context, chatID, kind, examDate string) error {
	if !r.Available() {
		return ErrUnavailable
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if chatID == "" {
		return errors.New("chat id is required")
	}
	if examDate == "" {
		return errors.New("exam date is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"exam_date":    examDate,
			"updated_at":   now,
			"last_seen_at": now,
		},
		"$setOnInsert": bson.M{
			"chat_id":    chatID,
			"type":       kind,
			"created_at": now,
		},
	}

	if _, err := r.chats.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		update,
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("set exam date: %w", err)
	}

	return nil
}

// ForEach streams every chat record through fn. Iteration stops early when fn
// returns false. The cardinality may be large, so records are decoded from
// the cursor one at a time rather than collected into a slice.
func (r *ChatRepository) ForEach(ctx context.Context, fn func(domain.Chat) bool) error {
	if !r.Available() {
		return ErrUnavailable
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if fn == nil {
		return errors.New("callback is required")
	}

	cursor, err := r.chats.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var chat domain.Chat
		if err := cursor.Decode(&chat); err != nil {
			return fmt.Errorf("decode chat: %w", err)
		}
		if !fn(chat) {
			return nil
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate chats: %w", err)
	}

	return nil
}
