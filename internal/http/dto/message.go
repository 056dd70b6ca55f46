package dto

import (
	"chatwire.app/server/internal/event"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	// Receiver is the peer user ID as a decimal string; absent for
	// assistant messages.
	Receiver    string `json:"receiver,omitempty"`
	MessageType string `json:"messageType,omitempty" binding:"omitempty,oneof=user ai"`
}

type MessageResponse struct {
	Message *event.MessagePayload `json:"message"`
}

// ExchangeResponse mirrors the messageReceived shape for assistant sends.
type ExchangeResponse struct {
	Messages []*event.MessagePayload `json:"messages"`
}

type HistoryResponse struct {
	Count    int                    `json:"count"`
	Messages []event.MessagePayload `json:"messages"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds" binding:"required,min=1"`
}
