package dto

import (
	"strconv"
	"time"

	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/service"
)

// AssistantThreadID is the reserved thread reference clients use for the
// assistant conversation. It crosses the wire only; internally the
// assistant thread is a tagged conversation kind.
const AssistantThreadID = "ai"

type ConversationResponse struct {
	ID              string                `json:"id"`
	Kind            string                `json:"kind"`
	Participants    []event.UserSummary   `json:"participants"`
	LastMessage     *event.MessagePayload `json:"last_message,omitempty"`
	LastMessageTime time.Time             `json:"last_message_time"`
	UnreadCount     map[string]int        `json:"unread_count"`
}

func ToConversationResponse(view service.ConversationView) ConversationResponse {
	conv := view.Conversation

	resp := ConversationResponse{
		Kind:            string(conv.Kind),
		Participants:    view.Participants,
		LastMessageTime: conv.LastMessageAt,
		UnreadCount:     make(map[string]int, len(conv.Unread)),
	}

	if conv.Kind == model.KindAssistant {
		resp.ID = AssistantThreadID
	} else {
		resp.ID = strconv.FormatInt(conv.ID, 10)
	}

	for userID, n := range conv.Unread {
		resp.UnreadCount[strconv.FormatInt(userID, 10)] = n
	}

	if view.LastMessage != nil {
		resp.LastMessage = &event.MessagePayload{Message: *view.LastMessage}
	}

	return resp
}

type ConversationsResponse struct {
	Count         int                    `json:"count"`
	Conversations []ConversationResponse `json:"conversations"`
}
