package event

import (
	"time"

	"chatwire.app/server/internal/model"
)

// Wire event names, client → server.
const (
	JoinConversation  = "joinConversation"
	LeaveConversation = "leaveConversation"
	SendMessage       = "sendMessage"
	Typing            = "typing"
	MarkAsRead        = "markAsRead"
)

// Wire event names, server → client.
const (
	MessageReceived = "messageReceived"
	NewMessage      = "newMessage"
	UserOnline      = "userOnline"
	UserOffline     = "userOffline"
	UserTyping      = "userTyping"
	MessageRead     = "messageRead"
	MessageError    = "messageError"
)

// Event is the envelope pushed over a live connection.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Sink is a live connection handle capable of receiving events. The presence
// registry stores Sinks; the websocket connection implements this.
type Sink interface {
	// Send enqueues an event for delivery. It must not block on the peer.
	Send(e Event) error
}

// UserSummary is the participant shape embedded in message payloads and
// presence broadcasts.
type UserSummary struct {
	ID       int64      `json:"id,string"`
	Username string     `json:"username"`
	Avatar   *string    `json:"avatar,omitempty"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func Summarize(u *model.User) *UserSummary {
	if u == nil {
		return nil
	}
	ls := u.LastSeen
	return &UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: &ls,
	}
}

// MessagePayload is a message with participant summaries attached.
type MessagePayload struct {
	model.Message
	Sender   *UserSummary `json:"sender,omitempty"`
	Receiver *UserSummary `json:"receiver,omitempty"`
}

// ExchangePayload carries both halves of an assistant exchange back to the
// requesting connection.
type ExchangePayload struct {
	UserMessage *MessagePayload `json:"userMessage"`
	AIMessage   *MessagePayload `json:"aiMessage"`
}

type PresencePayload struct {
	UserID   int64      `json:"userId,string"`
	Username string     `json:"username"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type TypingPayload struct {
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ReadReceiptPayload struct {
	MessageID int64     `json:"messageId,string"`
	ReadBy    int64     `json:"readBy,string"`
	ReadAt    time.Time `json:"readAt"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
