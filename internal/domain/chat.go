// Package domain defines shared domain constants and types.
package domain

import "time"

const (
	// KindUser marks a one-on-one conversation with a single LINE user.
	KindUser = "user"
	// KindGroup marks a group or multi-person room conversation.
	KindGroup = "group"
)

// Chat represents one conversation the bot participates in, individual or
// group. ExamDate is nil until the chat configures a countdown target via the
// set-date command.
type Chat struct {
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	Kind       string    `bson:"type" json:"type"`
	ExamDate   *string   `bson:"exam_date" json:"exam_date"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
}

// HasExamDate reports whether the chat has a configured countdown target.
func (c Chat) HasExamDate() bool {
	return c.ExamDate != nil && *c.ExamDate != ""
}
