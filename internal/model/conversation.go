package model

import "time"

type ConversationKind string

const (
	// KindHuman is a stored conversation between exactly two users.
	KindHuman ConversationKind = "human"
	// KindAssistant is the synthetic per-user thread with the assistant.
	// It is never persisted; List materializes one per caller.
	KindAssistant ConversationKind = "assistant"
)

// Conversation summarizes one participant pair's message history, or the
// caller's assistant thread. The two shapes are distinguished by Kind rather
// than a sentinel identity value.
type Conversation struct {
	ID            int64            `json:"id,string"`
	Kind          ConversationKind `json:"kind"`
	ParticipantA  int64            `json:"-"`
	ParticipantB  int64            `json:"-"`
	Owner         int64            `json:"-"` // assistant threads only
	LastMessageID *int64           `json:"-"`
	LastMessageAt time.Time        `json:"last_message_at"`
	Unread        map[int64]int    `json:"-"` // per-participant unread counters, lazy entries
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NormalizePair orders a participant pair so lookups and storage agree on
// which side is A. The pair is unordered in the domain.
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
