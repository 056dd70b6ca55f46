package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chatwire.app/server/internal/http/dto"
	"chatwire.app/server/internal/http/middleware"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
)

type UserHandler struct {
	userService         service.UserService
	conversationService service.ConversationService
}

func NewUserHandler(userService service.UserService, conversationService service.ConversationService) *UserHandler {
	return &UserHandler{
		userService:         userService,
		conversationService: conversationService,
	}
}

func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	users, err := h.userService.List(ctx, caller.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, dto.UsersResponse{Count: len(users), Users: dto.ToUserResponses(users)})
}

func (h *UserHandler) Conversations(c *gin.Context) {
	ctx := c.Request.Context()

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	views, err := h.conversationService.List(ctx, caller)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list conversations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	resp := dto.ConversationsResponse{
		Count:         len(views),
		Conversations: make([]dto.ConversationResponse, 0, len(views)),
	}
	for _, view := range views {
		resp.Conversations = append(resp.Conversations, dto.ToConversationResponse(view))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query is required"})
		return
	}

	users, err := h.userService.Search(ctx, caller.ID, q)
	if err != nil {
		slog.ErrorContext(ctx, "user search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, dto.UsersResponse{Count: len(users), Users: dto.ToUserResponses(users)})
}

func (h *UserHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load user", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username == nil && req.Avatar == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	user, err := h.userService.UpdateProfile(ctx, caller.ID, req.Username, req.Avatar)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}
