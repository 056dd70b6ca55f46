package store

import (
	"context"
	"errors"
	"time"

	"chatwire.app/server/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	// List returns all users except the given one, online first then by
	// last-seen descending.
	List(ctx context.Context, excludeID int64) ([]model.User, error)
	Search(ctx context.Context, q string, excludeID int64, limit int32) ([]model.User, error)
	UpdateProfile(ctx context.Context, id int64, username, avatar *string) (*model.User, error)
	// SetPresence flips the durable presence flag and refreshes last-seen.
	// Only the connection lifecycle code calls this.
	SetPresence(ctx context.Context, id int64, online bool, lastSeen time.Time) error
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	// ListBetween returns messages exchanged between two users in either
	// direction, most recent first.
	ListBetween(ctx context.Context, a, b int64, limit, offset int32) ([]model.Message, error)
	// ListAssistantThread returns the owner's assistant-thread messages,
	// most recent first.
	ListAssistantThread(ctx context.Context, owner int64, limit, offset int32) ([]model.Message, error)
	// MarkRead flips read=false→true on the given messages where the reader
	// is the receiver, and returns only the messages actually updated.
	MarkRead(ctx context.Context, ids []int64, receiver int64, at time.Time) ([]model.Message, error)
	// MarkThreadRead flips all unread messages from peer to receiver.
	MarkThreadRead(ctx context.Context, receiver, peer int64, at time.Time) error
}

// ConversationStore defines the contract for conversation aggregate access
type ConversationStore interface {
	// FindByParticipants looks up the conversation for an unordered pair.
	FindByParticipants(ctx context.Context, a, b int64) (*model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	// UpdateForMessage overwrites the last-message pointer/time and
	// increments the receiver's unread counter by one, creating the entry
	// at 1 if absent.
	UpdateForMessage(ctx context.Context, id, messageID int64, at time.Time, receiver int64) error
	ResetUnread(ctx context.Context, id, userID int64) error
	// ListByUser returns the human conversations the user participates in,
	// most recent activity first.
	ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error)
}
