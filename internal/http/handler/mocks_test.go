package handler_test

import (
	"context"

	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/service"
)

type mockMessageService struct {
	sendFn           func(ctx context.Context, sender *model.User, content string, receiverID *int64, kind model.MessageKind) (*service.SendResult, error)
	historyFn        func(ctx context.Context, user *model.User, peer service.ThreadRef, page, limit int32) ([]event.MessagePayload, error)
	markThreadReadFn func(ctx context.Context, readerID, peerID int64) error
}

func (m *mockMessageService) Send(ctx context.Context, sender *model.User, content string, receiverID *int64, kind model.MessageKind) (*service.SendResult, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, sender, content, receiverID, kind)
	}
	return &service.SendResult{}, nil
}

func (m *mockMessageService) Typing(_ context.Context, _ *model.User, _ int64, _ bool) {}

func (m *mockMessageService) MarkRead(_ context.Context, _ int64, _ []int64) ([]model.Message, error) {
	return nil, nil
}

func (m *mockMessageService) History(ctx context.Context, user *model.User, peer service.ThreadRef, page, limit int32) ([]event.MessagePayload, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, user, peer, page, limit)
	}
	return []event.MessagePayload{}, nil
}

func (m *mockMessageService) MarkThreadRead(ctx context.Context, readerID, peerID int64) error {
	if m.markThreadReadFn != nil {
		return m.markThreadReadFn(ctx, readerID, peerID)
	}
	return nil
}

type mockUserService struct {
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	listFn          func(ctx context.Context, callerID int64) ([]model.User, error)
	searchFn        func(ctx context.Context, callerID int64, q string) ([]model.User, error)
	updateProfileFn func(ctx context.Context, callerID int64, username, avatar *string) (*model.User, error)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) List(ctx context.Context, callerID int64) ([]model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, callerID)
	}
	return []model.User{}, nil
}

func (m *mockUserService) Search(ctx context.Context, callerID int64, q string) ([]model.User, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, callerID, q)
	}
	return []model.User{}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, callerID int64, username, avatar *string) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, callerID, username, avatar)
	}
	return nil, nil
}

type mockConversationService struct {
	listFn func(ctx context.Context, user *model.User) ([]service.ConversationView, error)
}

func (m *mockConversationService) UpsertForMessage(_ context.Context, _, _ int64, _ *model.Message) error {
	return nil
}

func (m *mockConversationService) MarkRead(_ context.Context, _, _ int64) error {
	return nil
}

func (m *mockConversationService) List(ctx context.Context, user *model.User) ([]service.ConversationView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, user)
	}
	return []service.ConversationView{}, nil
}
