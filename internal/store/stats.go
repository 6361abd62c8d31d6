package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve chat counts for basic
// diagnostics without leaking MongoDB internals to callers.
type StatsProvider struct {
	chats countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the chats collection.
func NewStatsProvider(chats countCollection) *StatsProvider {
	return &StatsProvider{chats: chats}
}

// CountChats returns the number of known chats.
func (p *StatsProvider) CountChats(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.chats == nil {
		return 0, ErrUnavailable
	}

	count, err := p.chats.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}

	return count, nil
}

// CountConfigured returns the number of chats with an exam date set, i.e. the
// audience of the scheduled broadcast.
func (p *StatsProvider) CountConfigured(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.chats == nil {
		return 0, ErrUnavailable
	}

	count, err := p.chats.CountDocuments(ctx, bson.M{"exam_date": bson.M{"$ne": nil}})
	if err != nil {
		return 0, fmt.Errorf("count configured chats: %w", err)
	}

	return count, nil
}
