package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"chatwire.app/server/common/id"
	"chatwire.app/server/internal/ai"
	"chatwire.app/server/internal/event"
	"chatwire.app/server/internal/journal"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/presence"
	"chatwire.app/server/internal/service"
	"chatwire.app/server/internal/store"
)

var _ = Describe("MessageService", func() {
	var (
		svc       service.MessageService
		users     *mockUserStore
		messages  *mockMessageStore
		convs     *mockConversationService
		responder *mockResponder
		registry  *presence.Registry
		jrnl      *mockJournal
		ctx       context.Context

		sender   *model.User
		receiver *model.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = &mockUserStore{}
		messages = &mockMessageStore{}
		convs = &mockConversationService{}
		responder = &mockResponder{}
		registry = presence.NewRegistry()
		jrnl = &mockJournal{}

		Expect(id.Init(1)).To(Succeed())

		sender = &model.User{ID: 100, Username: "alice"}
		receiver = &model.User{ID: 200, Username: "bob"}
		users.getByIDFn = func(_ context.Context, userID int64) (*model.User, error) {
			switch userID {
			case sender.ID:
				return sender, nil
			case receiver.ID:
				return receiver, nil
			}
			return nil, store.ErrNotFound
		}

		svc = service.NewMessageService(users, messages, convs, responder, registry, jrnl)
	})

	Describe("Send to a user", func() {
		It("persists one delivered message and updates the conversation", func() {
			result, err := svc.Send(ctx, sender, "hello", &receiver.ID, model.KindUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.AIMessage).To(BeNil())
			Expect(result.Message).NotTo(BeNil())
			Expect(result.Message.Delivered).To(BeTrue())
			Expect(result.Message.DeliveredAt).NotTo(BeNil())
			Expect(*result.Message.SenderID).To(Equal(sender.ID))
			Expect(*result.Message.ReceiverID).To(Equal(receiver.ID))
			Expect(result.Message.Sender.Username).To(Equal("alice"))
			Expect(result.Message.Receiver.Username).To(Equal("bob"))

			Expect(messages.created).To(HaveLen(1))
			Expect(convs.upsertCalls).To(Equal(1))
			Expect(jrnl.entries).To(HaveLen(1))
			Expect(jrnl.entries[0].Type).To(Equal(journal.EntryMessageCreated))
		})

		It("pushes newMessage to an online receiver", func() {
			sink := &mockSink{}
			registry.Set(receiver.ID, sink)

			_, err := svc.Send(ctx, sender, "hello", &receiver.ID, model.KindUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(sink.named(event.NewMessage)).To(HaveLen(1))
		})

		It("still succeeds when the receiver is offline", func() {
			result, err := svc.Send(ctx, sender, "hello", &receiver.ID, model.KindUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Message.Delivered).To(BeTrue())
		})

		It("rejects empty content before any persistence", func() {
			_, err := svc.Send(ctx, sender, "   \n\t  ", &receiver.ID, model.KindUser)

			Expect(err).To(MatchError(service.ErrEmptyContent))
			Expect(messages.created).To(BeEmpty())
		})

		It("requires a receiver", func() {
			_, err := svc.Send(ctx, sender, "hello", nil, model.KindUser)

			Expect(err).To(MatchError(service.ErrReceiverRequired))
			Expect(messages.created).To(BeEmpty())
		})

		It("fails when the receiver does not exist", func() {
			unknown := int64(999)
			_, err := svc.Send(ctx, sender, "hello", &unknown, model.KindUser)

			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
			Expect(messages.created).To(BeEmpty())
		})

		It("aborts with no side effects when persistence fails", func() {
			messages.createFn = func(_ context.Context, _ *model.Message) error {
				return errors.New("connection refused")
			}
			sink := &mockSink{}
			registry.Set(receiver.ID, sink)

			_, err := svc.Send(ctx, sender, "hello", &receiver.ID, model.KindUser)

			Expect(err).To(HaveOccurred())
			Expect(convs.upsertCalls).To(BeZero())
			Expect(jrnl.entries).To(BeEmpty())
			Expect(sink.events).To(BeEmpty())
		})

		It("succeeds even when the conversation aggregate update fails", func() {
			convs.upsertForMessageFn = func(_ context.Context, _, _ int64, _ *model.Message) error {
				return errors.New("aggregate update failed")
			}

			result, err := svc.Send(ctx, sender, "hello", &receiver.ID, model.KindUser)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Message).NotTo(BeNil())
		})
	})

	Describe("Send to the assistant", func() {
		It("persists the user message and the reply as one exchange", func() {
			responder.replyFn = func(_ context.Context, prompt string, _ []model.Message) (string, error) {
				Expect(prompt).To(Equal("what is go?"))
				return "a programming language", nil
			}

			result, err := svc.Send(ctx, sender, "what is go?", nil, model.KindAI)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Message).NotTo(BeNil())
			Expect(result.AIMessage).NotTo(BeNil())
			Expect(result.AIMessage.Content).To(Equal("a programming language"))
			Expect(result.AIMessage.Kind).To(Equal(model.KindAI))
			Expect(result.AIMessage.SenderID).To(BeNil())
			Expect(result.AIMessage.ReceiverID).To(BeNil())
			Expect(result.Message.ReceiverID).To(BeNil())

			Expect(messages.created).To(HaveLen(2))
			Expect(convs.upsertCalls).To(BeZero())
		})

		It("feeds bounded thread history to the responder", func() {
			var gotLimit int32
			messages.listAssistantThreadFn = func(_ context.Context, owner int64, limit, _ int32) ([]model.Message, error) {
				Expect(owner).To(Equal(sender.ID))
				gotLimit = limit
				return []model.Message{}, nil
			}

			_, err := svc.Send(ctx, sender, "hi", nil, model.KindAI)

			Expect(err).NotTo(HaveOccurred())
			Expect(gotLimit).To(Equal(int32(10)))
		})

		It("falls back to an apology when generation fails", func() {
			responder.replyFn = func(_ context.Context, _ string, _ []model.Message) (string, error) {
				return "", errors.New("boom")
			}

			result, err := svc.Send(ctx, sender, "hi", nil, model.KindAI)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.AIMessage.Content).To(ContainSubstring("I encountered an error"))
			Expect(messages.created).To(HaveLen(2))
		})

		It("explains when the responder is not configured", func() {
			responder.replyFn = func(_ context.Context, _ string, _ []model.Message) (string, error) {
				return "", ai.ErrNotConfigured
			}

			result, err := svc.Send(ctx, sender, "hi", nil, model.KindAI)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.AIMessage.Content).To(Equal(ai.FallbackText(ai.ErrNotConfigured)))
		})

		It("fails the exchange when the inbound message cannot be persisted", func() {
			messages.createFn = func(_ context.Context, _ *model.Message) error {
				return errors.New("connection refused")
			}

			_, err := svc.Send(ctx, sender, "hi", nil, model.KindAI)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Typing", func() {
		It("relays the indicator to an online receiver", func() {
			sink := &mockSink{}
			registry.Set(receiver.ID, sink)

			svc.Typing(ctx, sender, receiver.ID, true)

			relayed := sink.named(event.UserTyping)
			Expect(relayed).To(HaveLen(1))
			payload := relayed[0].Data.(event.TypingPayload)
			Expect(payload.UserID).To(Equal(sender.ID))
			Expect(payload.IsTyping).To(BeTrue())
		})

		It("is a no-op for an offline receiver", func() {
			svc.Typing(ctx, sender, receiver.ID, true)
			Expect(messages.created).To(BeEmpty())
		})
	})

	Describe("MarkRead", func() {
		It("notifies each sender still online", func() {
			now := time.Now().UTC()
			messages.markReadFn = func(_ context.Context, ids []int64, reader int64, at time.Time) ([]model.Message, error) {
				Expect(reader).To(Equal(receiver.ID))
				return []model.Message{
					{ID: ids[0], SenderID: &sender.ID, ReceiverID: &receiver.ID, Read: true, ReadAt: &now},
				}, nil
			}
			sink := &mockSink{}
			registry.Set(sender.ID, sink)

			updated, err := svc.MarkRead(ctx, receiver.ID, []int64{1})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(HaveLen(1))

			receipts := sink.named(event.MessageRead)
			Expect(receipts).To(HaveLen(1))
			payload := receipts[0].Data.(event.ReadReceiptPayload)
			Expect(payload.ReadBy).To(Equal(receiver.ID))
		})

		It("is idempotent: already-read messages produce no receipts", func() {
			messages.markReadFn = func(_ context.Context, _ []int64, _ int64, _ time.Time) ([]model.Message, error) {
				return []model.Message{}, nil
			}
			sink := &mockSink{}
			registry.Set(sender.ID, sink)

			updated, err := svc.MarkRead(ctx, receiver.ID, []int64{1, 2})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeEmpty())
			Expect(sink.events).To(BeEmpty())
		})

		It("does nothing for an empty id list", func() {
			called := false
			messages.markReadFn = func(_ context.Context, _ []int64, _ int64, _ time.Time) ([]model.Message, error) {
				called = true
				return nil, nil
			}

			_, err := svc.MarkRead(ctx, receiver.ID, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(called).To(BeFalse())
		})
	})

	Describe("History", func() {
		It("returns user-thread messages oldest first with summaries", func() {
			messages.listBetweenFn = func(_ context.Context, a, b int64, limit, offset int32) ([]model.Message, error) {
				Expect(a).To(Equal(sender.ID))
				Expect(b).To(Equal(receiver.ID))
				Expect(limit).To(Equal(int32(50)))
				Expect(offset).To(BeZero())
				return []model.Message{
					{ID: 2, SenderID: &receiver.ID, ReceiverID: &sender.ID, Content: "second"},
					{ID: 1, SenderID: &sender.ID, ReceiverID: &receiver.ID, Content: "first"},
				}, nil
			}

			page, err := svc.History(ctx, sender, service.ThreadRef{UserID: receiver.ID}, 0, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].Content).To(Equal("first"))
			Expect(page[1].Content).To(Equal("second"))
			Expect(page[0].Sender.Username).To(Equal("alice"))
			Expect(page[1].Sender.Username).To(Equal("bob"))
		})

		It("pages the assistant thread", func() {
			messages.listAssistantThreadFn = func(_ context.Context, owner int64, limit, offset int32) ([]model.Message, error) {
				Expect(owner).To(Equal(sender.ID))
				Expect(limit).To(Equal(int32(20)))
				Expect(offset).To(Equal(int32(20)))
				return []model.Message{}, nil
			}

			_, err := svc.History(ctx, sender, service.ThreadRef{Assistant: true}, 2, 20)

			Expect(err).NotTo(HaveOccurred())
		})

		It("fails when the peer does not exist", func() {
			_, err := svc.History(ctx, sender, service.ThreadRef{UserID: 999}, 1, 50)

			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("MarkThreadRead", func() {
		It("flips the flags and resets the unread counter", func() {
			var flagged, reset bool
			messages.markThreadReadFn = func(_ context.Context, reader, peer int64, _ time.Time) error {
				Expect(reader).To(Equal(sender.ID))
				Expect(peer).To(Equal(receiver.ID))
				flagged = true
				return nil
			}
			convs.markReadFn = func(_ context.Context, userID, peerID int64) error {
				Expect(userID).To(Equal(sender.ID))
				Expect(peerID).To(Equal(receiver.ID))
				reset = true
				return nil
			}

			Expect(svc.MarkThreadRead(ctx, sender.ID, receiver.ID)).To(Succeed())
			Expect(flagged).To(BeTrue())
			Expect(reset).To(BeTrue())
		})

		It("does not touch the aggregate when flag update fails", func() {
			messages.markThreadReadFn = func(_ context.Context, _, _ int64, _ time.Time) error {
				return errors.New("connection refused")
			}
			called := false
			convs.markReadFn = func(_ context.Context, _, _ int64) error {
				called = true
				return nil
			}

			Expect(svc.MarkThreadRead(ctx, sender.ID, receiver.ID)).NotTo(Succeed())
			Expect(called).To(BeFalse())
		})
	})
})
