package ws

import (
	"encoding/json"
	"strconv"
)

// clientEnvelope is the frame shape clients send: an event name plus a
// payload decoded per event.
type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound payloads carry IDs as decimal strings, matching how the API
// serializes snowflake IDs.

type roomData struct {
	ConversationID string `json:"conversationId"`
}

type sendMessageData struct {
	Content     string `json:"content"`
	Receiver    string `json:"receiver,omitempty"`
	MessageType string `json:"messageType"`
}

type typingData struct {
	Receiver string `json:"receiver"`
	IsTyping bool   `json:"isTyping"`
}

type markAsReadData struct {
	MessageIDs []string `json:"messageIds"`
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseIDs(ss []string) []int64 {
	ids := make([]int64, 0, len(ss))
	for _, s := range ss {
		if id, ok := parseID(s); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
