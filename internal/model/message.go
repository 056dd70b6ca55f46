package model

import (
	"strings"
	"time"
)

type MessageKind string

const (
	// KindUser is a human-authored message.
	KindUser MessageKind = "user"
	// KindAI is an assistant-authored reply. AI messages have no sender;
	// assistant replies live in the requesting user's private thread and
	// carry no receiver.
	KindAI MessageKind = "ai"
)

// Message is immutable once created, except for the delivered/read flags
// which transition false→true exactly once.
type Message struct {
	ID          int64       `json:"id,string"`
	SenderID    *int64      `json:"sender_id,string,omitempty"`
	ReceiverID  *int64      `json:"receiver_id,string,omitempty"`
	Content     string      `json:"content"`
	Kind        MessageKind `json:"kind"`
	Delivered   bool        `json:"delivered"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
	Read        bool        `json:"read"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ValidContent reports whether a message body is non-empty after trimming.
func ValidContent(content string) bool {
	return strings.TrimSpace(content) != ""
}
