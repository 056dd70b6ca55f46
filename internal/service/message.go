package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chatwire.app/server/common/id"
	"chatwire.app/server/common/logger"
	"chatwire.app/server/internal/ai"
	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/journal"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/presence"
	"chatwire.app/server/internal/store"
)

// aiHistoryLimit bounds the prior-message context fed to the responder.
const aiHistoryLimit = 10

// ThreadRef identifies the far side of a message thread: either another
// user or the caller's assistant thread.
type ThreadRef struct {
	Assistant bool
	UserID    int64
}

// SendResult carries the persisted message(s) back to the caller. AIMessage
// is set only for assistant exchanges.
type SendResult struct {
	Message   *event.MessagePayload
	AIMessage *event.MessagePayload
}

type MessageService interface {
	// Send validates, persists and routes one inbound message.
	// Side effect order is persist → aggregate-update → notify; a persist
	// failure aborts with no side effects, an aggregate failure after
	// persist leaves the summary stale but the send still succeeds.
	Send(ctx context.Context, sender *model.User, content string, receiverID *int64, kind model.MessageKind) (*SendResult, error)
	// Typing relays a typing indicator. Pure fan-out, nothing persisted;
	// no-op when the receiver has no live connection.
	Typing(ctx context.Context, sender *model.User, receiverID int64, isTyping bool)
	// MarkRead flips the read flag on messages addressed to the reader and
	// notifies each sender still online. Idempotent.
	MarkRead(ctx context.Context, readerID int64, messageIDs []int64) ([]model.Message, error)
	// History returns a page of the thread's messages, oldest first.
	History(ctx context.Context, user *model.User, peer ThreadRef, page, limit int32) ([]event.MessagePayload, error)
	// MarkThreadRead flips every unread message from peer to reader and
	// resets the reader's unread counter on the pair conversation.
	MarkThreadRead(ctx context.Context, readerID, peerID int64) error
}

type messageService struct {
	userStore     store.UserStore
	messageStore  store.MessageStore
	conversations ConversationService
	responder     ai.Responder
	registry      *presence.Registry
	journal       journal.Journal
}

func NewMessageService(
	userStore store.UserStore,
	messageStore store.MessageStore,
	conversations ConversationService,
	responder ai.Responder,
	registry *presence.Registry,
	jrnl journal.Journal,
) MessageService {
	return &messageService{
		userStore:     userStore,
		messageStore:  messageStore,
		conversations: conversations,
		responder:     responder,
		registry:      registry,
		journal:       jrnl,
	}
}

func (s *messageService) Send(ctx context.Context, sender *model.User, content string, receiverID *int64, kind model.MessageKind) (*SendResult, error) {
	if !model.ValidContent(content) {
		return nil, ErrEmptyContent
	}

	if kind == model.KindAI {
		return s.sendToAssistant(ctx, sender, content)
	}
	return s.sendToUser(ctx, sender, content, receiverID)
}

func (s *messageService) sendToUser(ctx context.Context, sender *model.User, content string, receiverID *int64) (*SendResult, error) {
	if receiverID == nil {
		return nil, ErrReceiverRequired
	}

	receiver, err := s.userStore.GetByID(ctx, *receiverID)
	if err != nil {
		return nil, fmt.Errorf("resolving receiver: %w", err)
	}

	// Delivery is synchronous with persistence; there is no separate
	// sent-but-unconfirmed state.
	now := time.Now().UTC()
	msg := &model.Message{
		ID:          id.New(),
		SenderID:    &sender.ID,
		ReceiverID:  receiverID,
		Content:     content,
		Kind:        model.KindUser,
		Delivered:   true,
		DeliveredAt: &now,
	}
	if err := s.messageStore.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(msg.ID)})

	// The message is already durable; a stale summary is the accepted
	// outcome here, not a rollback.
	if err := s.conversations.UpsertForMessage(ctx, sender.ID, *receiverID, msg); err != nil {
		slog.ErrorContext(ctx, "conversation aggregate update failed", "error", err)
	}

	s.record(ctx, journal.Entry{
		Type:       journal.EntryMessageCreated,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Kind:       string(msg.Kind),
	})

	payload := &event.MessagePayload{
		Message:  *msg,
		Sender:   event.Summarize(sender),
		Receiver: event.Summarize(receiver),
	}

	// Offline receivers pick the message up on their next fetch; no retry.
	if s.registry.Push(*receiverID, event.Event{Name: event.NewMessage, Data: payload}) {
		slog.DebugContext(ctx, "message pushed to receiver")
	}

	return &SendResult{Message: payload}, nil
}

func (s *messageService) sendToAssistant(ctx context.Context, sender *model.User, content string) (*SendResult, error) {
	history, err := s.messageStore.ListAssistantThread(ctx, sender.ID, aiHistoryLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("loading assistant history: %w", err)
	}

	reply, err := s.responder.Reply(ctx, content, history)
	if err != nil {
		// Degrade, never fail the exchange: the user always gets a reply.
		slog.WarnContext(ctx, "assistant generation failed, using fallback", "error", err)
		reply = ai.FallbackText(err)
	}

	userMsg := &model.Message{
		ID:       id.New(),
		SenderID: &sender.ID,
		Content:  content,
		Kind:     model.KindUser,
	}
	if err := s.messageStore.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	now := time.Now().UTC()
	aiMsg := &model.Message{
		ID:          id.New(),
		Content:     reply,
		Kind:        model.KindAI,
		Delivered:   true,
		DeliveredAt: &now,
	}
	if err := s.messageStore.Create(ctx, aiMsg); err != nil {
		// The inbound message is already durable; surface the failure.
		return nil, fmt.Errorf("persisting assistant reply: %w", err)
	}

	s.record(ctx, journal.Entry{Type: journal.EntryMessageCreated, MessageID: userMsg.ID, SenderID: userMsg.SenderID, Kind: string(userMsg.Kind)})
	s.record(ctx, journal.Entry{Type: journal.EntryMessageCreated, MessageID: aiMsg.ID, Kind: string(aiMsg.Kind)})

	return &SendResult{
		Message:   &event.MessagePayload{Message: *userMsg, Sender: event.Summarize(sender)},
		AIMessage: &event.MessagePayload{Message: *aiMsg},
	}, nil
}

func (s *messageService) Typing(ctx context.Context, sender *model.User, receiverID int64, isTyping bool) {
	delivered := s.registry.Push(receiverID, event.Event{
		Name: event.UserTyping,
		Data: event.TypingPayload{
			UserID:   sender.ID,
			Username: sender.Username,
			IsTyping: isTyping,
		},
	})
	if delivered {
		slog.DebugContext(ctx, "typing indicator relayed", "receiver_id", receiverID, "is_typing", isTyping)
	}
}

func (s *messageService) MarkRead(ctx context.Context, readerID int64, messageIDs []int64) ([]model.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	updated, err := s.messageStore.MarkRead(ctx, messageIDs, readerID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}

	for _, msg := range updated {
		s.record(ctx, journal.Entry{Type: journal.EntryMessageRead, MessageID: msg.ID, SenderID: msg.SenderID, ReceiverID: msg.ReceiverID, Kind: string(msg.Kind)})

		if msg.SenderID == nil || msg.ReadAt == nil {
			continue
		}
		s.registry.Push(*msg.SenderID, event.Event{
			Name: event.MessageRead,
			Data: event.ReadReceiptPayload{
				MessageID: msg.ID,
				ReadBy:    readerID,
				ReadAt:    *msg.ReadAt,
			},
		})
	}

	return updated, nil
}

func (s *messageService) History(ctx context.Context, user *model.User, peer ThreadRef, page, limit int32) ([]event.MessagePayload, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	var (
		msgs     []model.Message
		err      error
		peerUser *model.User
	)
	if peer.Assistant {
		msgs, err = s.messageStore.ListAssistantThread(ctx, user.ID, limit, offset)
	} else {
		peerUser, err = s.userStore.GetByID(ctx, peer.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolving peer: %w", err)
		}
		msgs, err = s.messageStore.ListBetween(ctx, user.ID, peer.UserID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	summaries := map[int64]*event.UserSummary{user.ID: event.Summarize(user)}
	if peerUser != nil {
		summaries[peerUser.ID] = event.Summarize(peerUser)
	}

	// Storage order is newest first; clients read oldest first.
	payloads := make([]event.MessagePayload, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		p := event.MessagePayload{Message: msg}
		if msg.SenderID != nil {
			p.Sender = summaries[*msg.SenderID]
		}
		if msg.ReceiverID != nil {
			p.Receiver = summaries[*msg.ReceiverID]
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func (s *messageService) MarkThreadRead(ctx context.Context, readerID, peerID int64) error {
	if err := s.messageStore.MarkThreadRead(ctx, readerID, peerID, time.Now().UTC()); err != nil {
		return err
	}
	return s.conversations.MarkRead(ctx, readerID, peerID)
}

func (s *messageService) record(ctx context.Context, entry journal.Entry) {
	if err := s.journal.Record(ctx, entry); err != nil {
		slog.WarnContext(ctx, "journal record failed", "error", err, "type", entry.Type)
	}
}
