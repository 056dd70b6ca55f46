package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"chatwire.app/server/common/id"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
)

var _ = Describe("ConversationService", func() {
	var (
		svc      service.ConversationService
		convs    *mockConversationStore
		users    *mockUserStore
		messages *mockMessageStore
		ctx      context.Context

		alice *model.User
		bob   *model.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		users = &mockUserStore{}
		messages = &mockMessageStore{}

		Expect(id.Init(1)).To(Succeed())

		alice = &model.User{ID: 100, Username: "alice"}
		bob = &model.User{ID: 200, Username: "bob"}
		users.getByIDFn = func(_ context.Context, userID int64) (*model.User, error) {
			switch userID {
			case alice.ID:
				return alice, nil
			case bob.ID:
				return bob, nil
			}
			return nil, store.ErrNotFound
		}

		svc = service.NewConversationService(convs, users, messages)
	})

	Describe("UpsertForMessage", func() {
		msg := &model.Message{ID: 42, CreatedAt: time.Now().UTC()}

		It("creates a normalized conversation on first contact", func() {
			convs.findByParticipantsFn = func(_ context.Context, _, _ int64) (*model.Conversation, error) {
				return nil, store.ErrNotFound
			}
			var created *model.Conversation
			convs.createFn = func(_ context.Context, conv *model.Conversation) error {
				created = conv
				return nil
			}

			// Sender has the higher ID; storage order must not depend on
			// who spoke first.
			err := svc.UpsertForMessage(ctx, bob.ID, alice.ID, msg)

			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())
			Expect(created.Kind).To(Equal(model.KindHuman))
			Expect(created.ParticipantA).To(Equal(alice.ID))
			Expect(created.ParticipantB).To(Equal(bob.ID))
			Expect(*created.LastMessageID).To(Equal(msg.ID))
			Expect(created.Unread).To(Equal(map[int64]int{alice.ID: 1}))
			Expect(convs.updateCalls).To(BeZero())
		})

		It("updates the existing conversation on later messages", func() {
			convs.findByParticipantsFn = func(_ context.Context, _, _ int64) (*model.Conversation, error) {
				return &model.Conversation{ID: 7, Kind: model.KindHuman}, nil
			}
			convs.updateForMessageFn = func(_ context.Context, convID, messageID int64, _ time.Time, unreadFor int64) error {
				Expect(convID).To(Equal(int64(7)))
				Expect(messageID).To(Equal(msg.ID))
				Expect(unreadFor).To(Equal(alice.ID))
				return nil
			}

			err := svc.UpsertForMessage(ctx, bob.ID, alice.ID, msg)

			Expect(err).NotTo(HaveOccurred())
			Expect(convs.createCalls).To(BeZero())
			Expect(convs.updateCalls).To(Equal(1))
		})

		It("propagates lookup failures", func() {
			convs.findByParticipantsFn = func(_ context.Context, _, _ int64) (*model.Conversation, error) {
				return nil, errors.New("connection refused")
			}

			err := svc.UpsertForMessage(ctx, bob.ID, alice.ID, msg)

			Expect(err).To(HaveOccurred())
			Expect(convs.createCalls).To(BeZero())
		})
	})

	Describe("MarkRead", func() {
		It("resets the reader's unread counter", func() {
			convs.findByParticipantsFn = func(_ context.Context, _, _ int64) (*model.Conversation, error) {
				return &model.Conversation{ID: 7}, nil
			}
			var resetConv, resetUser int64
			convs.resetUnreadFn = func(_ context.Context, convID, userID int64) error {
				resetConv, resetUser = convID, userID
				return nil
			}

			Expect(svc.MarkRead(ctx, alice.ID, bob.ID)).To(Succeed())
			Expect(resetConv).To(Equal(int64(7)))
			Expect(resetUser).To(Equal(alice.ID))
		})

		It("is a no-op when the pair has no conversation", func() {
			convs.findByParticipantsFn = func(_ context.Context, _, _ int64) (*model.Conversation, error) {
				return nil, store.ErrNotFound
			}

			Expect(svc.MarkRead(ctx, alice.ID, bob.ID)).To(Succeed())
		})
	})

	Describe("List", func() {
		It("prepends the assistant thread even with no stored conversations", func() {
			views, err := svc.List(ctx, alice)

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Conversation.Kind).To(Equal(model.KindAssistant))
			Expect(views[0].Conversation.Owner).To(Equal(alice.ID))
			Expect(views[0].Participants).To(HaveLen(1))
			Expect(views[0].Participants[0].Username).To(Equal(service.AssistantName))
			Expect(views[0].Participants[0].IsOnline).To(BeTrue())
		})

		It("resolves the peer and the last message for each conversation", func() {
			lastID := int64(42)
			convs.listByUserFn = func(_ context.Context, userID int64) ([]model.Conversation, error) {
				Expect(userID).To(Equal(alice.ID))
				return []model.Conversation{{
					ID:            7,
					Kind:          model.KindHuman,
					ParticipantA:  alice.ID,
					ParticipantB:  bob.ID,
					LastMessageID: &lastID,
					Unread:        map[int64]int{alice.ID: 3},
				}}, nil
			}
			messages.getByIDFn = func(_ context.Context, msgID int64) (*model.Message, error) {
				Expect(msgID).To(Equal(lastID))
				return &model.Message{ID: lastID, Content: "latest"}, nil
			}

			views, err := svc.List(ctx, alice)

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))

			view := views[1]
			Expect(view.Participants).To(HaveLen(2))
			Expect(view.Participants[0].Username).To(Equal("alice"))
			Expect(view.Participants[1].Username).To(Equal("bob"))
			Expect(view.LastMessage).NotTo(BeNil())
			Expect(view.LastMessage.Content).To(Equal("latest"))
		})

		It("skips conversations whose peer no longer resolves", func() {
			convs.listByUserFn = func(_ context.Context, _ int64) ([]model.Conversation, error) {
				return []model.Conversation{{
					ID:           7,
					Kind:         model.KindHuman,
					ParticipantA: alice.ID,
					ParticipantB: 999,
				}}, nil
			}

			views, err := svc.List(ctx, alice)

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1)) // assistant thread only
		})
	})
})
