package domain

import (
	"context"
	"time"
)

type MessageType string

const (
	MessageSystem  MessageType = "system"
	MessageLike    MessageType = "like"
	MessageComment MessageType = "comment"
	MessageFollow  MessageType = "follow"
	MessageCollect MessageType = "collect"
)

// MessageTypes lists every MessageType, in display order.
var MessageTypes = []MessageType{MessageSystem, MessageLike, MessageComment, MessageFollow, MessageCollect}

// Message is a notification sent to UserID. FromUserID is nil for system messages.
type Message struct {
	ID         int64       `json:"id" gorm:"primaryKey"`
	UserID     int64       `json:"user_id" gorm:"notNull;index"`
	FromUserID *int64      `json:"from_user_id"`
	Type       MessageType `json:"type" gorm:"size:20;notNull;index"`
	Title      string      `json:"title" gorm:"size:200;notNull"`
	Content    string      `json:"content" gorm:"type:text"`
	TargetType TargetType  `json:"target_type,omitempty" gorm:"size:20"`
	TargetID   *int64      `json:"target_id,omitempty"`
	IsRead     bool        `json:"is_read" gorm:"notNull;default:false;index"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
}

// MessageFilter narrows down a message listing. Zero values match everything.
type MessageFilter struct {
	Type       MessageType `json:"type"`
	UnreadOnly bool        `json:"unread_only"`
	Page
}

// MessageService is a set of methods to read and acknowledge a user's notifications.
// Messages are written by the services whose actions trigger them.
type MessageService interface {
	List(ctx context.Context, userID int64, filter MessageFilter) ([]Message, int64, error)
	ByID(ctx context.Context, userID, id int64) (*Message, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64, typ MessageType) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	Stats(ctx context.Context, userID int64) (map[MessageType]int64, error)
	Delete(ctx context.Context, userID, id int64) error
}
