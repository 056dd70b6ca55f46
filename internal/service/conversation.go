package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatwire.app/server/common/id"
	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/store"
)

// AssistantName is the display name of the synthetic assistant participant.
const AssistantName = "AI Assistant"

const assistantAvatar = "🤖"

// ConversationView is a conversation aggregate populated with participant
// summaries and the last message, ready for listing.
type ConversationView struct {
	Conversation model.Conversation
	Participants []event.UserSummary
	LastMessage  *model.Message
}

type ConversationService interface {
	// UpsertForMessage finds or creates the conversation for the pair and
	// folds the new message into it: last-message pointer, last activity,
	// receiver's unread counter +1.
	UpsertForMessage(ctx context.Context, senderID, receiverID int64, msg *model.Message) error
	// MarkRead resets the user's unread counter for the pair conversation.
	// No-op if the conversation does not exist.
	MarkRead(ctx context.Context, userID, peerID int64) error
	// List returns the caller's human conversations by recent activity,
	// prepended with the synthetic assistant thread.
	List(ctx context.Context, user *model.User) ([]ConversationView, error)
}

type conversationService struct {
	convStore    store.ConversationStore
	userStore    store.UserStore
	messageStore store.MessageStore
}

func NewConversationService(convStore store.ConversationStore, userStore store.UserStore, messageStore store.MessageStore) ConversationService {
	return &conversationService{
		convStore:    convStore,
		userStore:    userStore,
		messageStore: messageStore,
	}
}

func (s *conversationService) UpsertForMessage(ctx context.Context, senderID, receiverID int64, msg *model.Message) error {
	conv, err := s.convStore.FindByParticipants(ctx, senderID, receiverID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("finding conversation: %w", err)
		}

		// First message between this pair. Two near-simultaneous first
		// messages may both land here and create duplicate summary rows;
		// lookups then pick the oldest, so the blast radius is a stray row.
		pa, pb := model.NormalizePair(senderID, receiverID)
		conv = &model.Conversation{
			ID:            id.New(),
			Kind:          model.KindHuman,
			ParticipantA:  pa,
			ParticipantB:  pb,
			LastMessageID: &msg.ID,
			LastMessageAt: msg.CreatedAt,
			Unread:        map[int64]int{receiverID: 1},
		}
		if err := s.convStore.Create(ctx, conv); err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		return nil
	}

	if err := s.convStore.UpdateForMessage(ctx, conv.ID, msg.ID, msg.CreatedAt, receiverID); err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	return nil
}

func (s *conversationService) MarkRead(ctx context.Context, userID, peerID int64) error {
	conv, err := s.convStore.FindByParticipants(ctx, userID, peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("finding conversation: %w", err)
	}

	if err := s.convStore.ResetUnread(ctx, conv.ID, userID); err != nil {
		return fmt.Errorf("resetting unread: %w", err)
	}
	return nil
}

func (s *conversationService) List(ctx context.Context, user *model.User) ([]ConversationView, error) {
	convs, err := s.convStore.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	views := make([]ConversationView, 0, len(convs)+1)
	views = append(views, s.assistantThreadView(user.ID))

	self := event.Summarize(user)
	for _, conv := range convs {
		view := ConversationView{Conversation: conv, Participants: []event.UserSummary{*self}}

		peerID := conv.ParticipantA
		if peerID == user.ID {
			peerID = conv.ParticipantB
		}
		peer, err := s.userStore.GetByID(ctx, peerID)
		if err != nil {
			slog.WarnContext(ctx, "conversation participant missing", "error", err, "peer_id", peerID)
			continue
		}
		view.Participants = append(view.Participants, *event.Summarize(peer))

		if conv.LastMessageID != nil {
			last, err := s.messageStore.GetByID(ctx, *conv.LastMessageID)
			if err != nil {
				slog.WarnContext(ctx, "last message missing", "error", err, "conversation_id", conv.ID)
			} else {
				view.LastMessage = last
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// assistantThreadView materializes the caller's always-present, always-online
// assistant conversation. It is never stored.
func (s *conversationService) assistantThreadView(owner int64) ConversationView {
	now := time.Now().UTC()
	avatar := assistantAvatar
	return ConversationView{
		Conversation: model.Conversation{
			Kind:          model.KindAssistant,
			Owner:         owner,
			LastMessageAt: now,
		},
		Participants: []event.UserSummary{{
			Username: AssistantName,
			Avatar:   &avatar,
			IsOnline: true,
			LastSeen: &now,
		}},
	}
}
