package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"chatwire.app/server/common/logger"
	"chatwire.app/server/internal/auth"
	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/presence"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
)

// Gateway owns the per-connection lifecycle: authentication, presence
// registration and broadcast on connect, event dispatch while the
// connection lives, and presence teardown on disconnect.
type Gateway struct {
	verifier auth.Verifier
	users    store.UserStore
	messages service.MessageService
	registry *presence.Registry
	rooms    *Rooms
}

func NewGateway(verifier auth.Verifier, users store.UserStore, messages service.MessageService, registry *presence.Registry, rooms *Rooms) *Gateway {
	return &Gateway{
		verifier: verifier,
		users:    users,
		messages: messages,
		registry: registry,
		rooms:    rooms,
	}
}

// Handle upgrades GET /ws. The credential travels as ?token= or a bearer
// header; authentication happens before the upgrade.
func (g *Gateway) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	userID, err := g.verifier.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	sock, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(sock)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(user.ID),
		ConnID:    logger.Ptr(conn.ID()),
		Component: "chatwire.ws.gateway",
	})

	go conn.writePump(ctx)

	g.connect(ctx, user, conn)
	defer g.disconnect(ctx, user, conn)

	g.readLoop(ctx, user, conn)
}

// connect moves the identity Offline → Online: store the handle (replacing
// any previous one), persist the presence flag, tell everyone else.
func (g *Gateway) connect(ctx context.Context, user *model.User, conn *Conn) {
	now := time.Now().UTC()
	if err := g.users.SetPresence(ctx, user.ID, true, now); err != nil {
		slog.ErrorContext(ctx, "failed to persist online status", "error", err)
	}
	user.IsOnline = true
	user.LastSeen = now

	g.registry.Set(user.ID, conn)

	g.registry.Broadcast(user.ID, event.Event{
		Name: event.UserOnline,
		Data: event.PresencePayload{
			UserID:   user.ID,
			Username: user.Username,
			IsOnline: true,
		},
	})

	slog.InfoContext(ctx, "user connected", "username", user.Username)
}

// disconnect is terminal for this connection instance. Bookkeeping errors
// are logged and swallowed; they must never take down the handling stream.
func (g *Gateway) disconnect(ctx context.Context, user *model.User, conn *Conn) {
	// The request context is usually canceled by the time the peer is
	// gone; the offline bookkeeping still has to run.
	ctx = context.WithoutCancel(ctx)

	conn.close(websocket.StatusNormalClosure, "")
	g.rooms.LeaveAll(conn)

	// Compare-and-delete: if a newer connection already replaced this
	// handle, the entry stays.
	g.registry.Remove(user.ID, conn)

	now := time.Now().UTC()
	if err := g.users.SetPresence(ctx, user.ID, false, now); err != nil {
		slog.ErrorContext(ctx, "failed to persist offline status", "error", err)
	}

	g.registry.Broadcast(user.ID, event.Event{
		Name: event.UserOffline,
		Data: event.PresencePayload{
			UserID:   user.ID,
			Username: user.Username,
			IsOnline: false,
			LastSeen: &now,
		},
	})

	slog.InfoContext(ctx, "user disconnected", "username", user.Username)
}

func (g *Gateway) readLoop(ctx context.Context, user *model.User, conn *Conn) {
	for {
		var env clientEnvelope
		if err := conn.read(ctx, &env); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.DebugContext(ctx, "websocket read ended", "error", err)
			}
			return
		}
		g.dispatch(logger.WithLogFields(ctx, logger.LogFields{Event: logger.Ptr(env.Event)}), user, conn, env)
	}
}

func (g *Gateway) dispatch(ctx context.Context, user *model.User, conn *Conn, env clientEnvelope) {
	switch env.Event {
	case event.JoinConversation:
		var data roomData
		if unmarshal(ctx, env.Data, &data) && data.ConversationID != "" {
			g.rooms.Join(data.ConversationID, conn)
			slog.DebugContext(ctx, "joined conversation room", "room", data.ConversationID)
		}

	case event.LeaveConversation:
		var data roomData
		if unmarshal(ctx, env.Data, &data) && data.ConversationID != "" {
			g.rooms.Leave(data.ConversationID, conn)
			slog.DebugContext(ctx, "left conversation room", "room", data.ConversationID)
		}

	case event.SendMessage:
		var data sendMessageData
		if !unmarshal(ctx, env.Data, &data) {
			g.sendError(conn)
			return
		}
		g.handleSend(ctx, user, conn, data)

	case event.Typing:
		var data typingData
		if !unmarshal(ctx, env.Data, &data) {
			return
		}
		if receiverID, ok := parseID(data.Receiver); ok {
			g.messages.Typing(ctx, user, receiverID, data.IsTyping)
		}

	case event.MarkAsRead:
		var data markAsReadData
		if !unmarshal(ctx, env.Data, &data) {
			return
		}
		if _, err := g.messages.MarkRead(ctx, user.ID, parseIDs(data.MessageIDs)); err != nil {
			slog.ErrorContext(ctx, "failed to mark messages read", "error", err)
		}

	default:
		slog.DebugContext(ctx, "ignoring unknown event", "name", env.Event)
	}
}

func (g *Gateway) handleSend(ctx context.Context, user *model.User, conn *Conn, data sendMessageData) {
	kind := model.KindUser
	if data.MessageType == string(model.KindAI) {
		kind = model.KindAI
	}

	// Assistant sends may carry the "ai" thread ref in the receiver slot;
	// the thread is implied by the sender, so it is ignored here.
	var receiverID *int64
	if kind == model.KindUser && data.Receiver != "" {
		parsed, ok := parseID(data.Receiver)
		if !ok {
			g.sendError(conn)
			return
		}
		receiverID = &parsed
	}

	result, err := g.messages.Send(ctx, user, data.Content, receiverID, kind)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send message", "error", err, "kind", kind)
		g.sendError(conn)
		return
	}

	// Ack the sender. Assistant exchanges return both halves.
	if result.AIMessage != nil {
		_ = conn.Send(event.Event{Name: event.MessageReceived, Data: event.ExchangePayload{
			UserMessage: result.Message,
			AIMessage:   result.AIMessage,
		}})
		return
	}
	_ = conn.Send(event.Event{Name: event.MessageReceived, Data: result.Message})
}

func (g *Gateway) sendError(conn *Conn) {
	_ = conn.Send(event.Event{Name: event.MessageError, Data: event.ErrorPayload{Error: "Failed to send message"}})
}

func unmarshal(ctx context.Context, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		slog.WarnContext(ctx, "malformed event payload", "error", err)
		return false
	}
	return true
}
