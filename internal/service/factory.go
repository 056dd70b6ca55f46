package service

import (
	"chatwire.app/server/internal/ai"
	"chatwire.app/server/internal/journal"
	"chatwire.app/server/internal/presence"
	"chatwire.app/server/internal/store"
)

type Services struct {
	stores    *store.Stores
	responder ai.Responder
	registry  *presence.Registry
	journal   journal.Journal
}

func NewServices(stores *store.Stores, responder ai.Responder, registry *presence.Registry, jrnl journal.Journal) *Services {
	return &Services{
		stores:    stores,
		responder: responder,
		registry:  registry,
		journal:   jrnl,
	}
}

func (s *Services) Users() UserService {
	return NewUserService(s.stores.Users())
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(s.stores.Conversations(), s.stores.Users(), s.stores.Messages())
}

func (s *Services) Messages() MessageService {
	return NewMessageService(
		s.stores.Users(),
		s.stores.Messages(),
		s.Conversations(),
		s.responder,
		s.registry,
		s.journal,
	)
}
