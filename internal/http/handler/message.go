package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/http/dto"
	"chatwire.app/server/internal/http/middleware"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()

	sender, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := model.KindUser
	if req.MessageType == string(model.KindAI) {
		kind = model.KindAI
	}

	var receiverID *int64
	if req.Receiver != "" && req.Receiver != dto.AssistantThreadID {
		id, err := strconv.ParseInt(req.Receiver, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver"})
			return
		}
		receiverID = &id
	}

	result, err := h.messageService.Send(ctx, sender, req.Content, receiverID, kind)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrReceiverRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		default:
			slog.ErrorContext(ctx, "failed to send message", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	if result.AIMessage != nil {
		c.JSON(http.StatusCreated, dto.ExchangeResponse{
			Messages: []*event.MessagePayload{result.Message, result.AIMessage},
		})
		return
	}

	c.JSON(http.StatusCreated, dto.MessageResponse{Message: result.Message})
}

func (h *MessageHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	peer, err := threadRefParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}

	page := queryInt32(c, "page", 1)
	limit := queryInt32(c, "limit", 50)

	messages, err := h.messageService.History(ctx, user, peer, page, limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load message history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{Count: len(messages), Messages: messages})
}

func (h *MessageHandler) MarkThreadRead(c *gin.Context) {
	ctx := c.Request.Context()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	peer, err := threadRefParam(c)
	if err != nil || peer.Assistant {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}

	if err := h.messageService.MarkThreadRead(ctx, user.ID, peer.UserID); err != nil {
		slog.ErrorContext(ctx, "failed to mark thread read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func threadRefParam(c *gin.Context) (service.ThreadRef, error) {
	raw := c.Param("peer")
	if raw == dto.AssistantThreadID {
		return service.ThreadRef{Assistant: true}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return service.ThreadRef{}, err
	}
	return service.ThreadRef{UserID: id}, nil
}

func queryInt32(c *gin.Context, name string, fallback int32) int32 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 1 {
		return fallback
	}
	return int32(v)
}
