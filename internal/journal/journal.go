package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type EntryType string

const (
	EntryMessageCreated EntryType = "message_created"
	EntryMessageRead    EntryType = "message_read"
)

type Entry struct {
	Type       EntryType
	MessageID  int64
	SenderID   *int64
	ReceiverID *int64
	Kind       string
}

// Journal records message lifecycle events for downstream consumers
// (analytics, audit). Recording is best effort: callers log and swallow
// failures, a journal outage never affects the send path.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

type redisJournal struct {
	client *redis.Client
	stream string
}

func NewRedisJournal(client *redis.Client, stream string) Journal {
	return &redisJournal{client: client, stream: stream}
}

func (j *redisJournal) Record(ctx context.Context, entry Entry) error {
	fields := map[string]any{
		"type":       string(entry.Type),
		"message_id": entry.MessageID,
		"kind":       entry.Kind,
	}
	if entry.SenderID != nil {
		fields["sender_id"] = *entry.SenderID
	}
	if entry.ReceiverID != nil {
		fields["receiver_id"] = *entry.ReceiverID
	}

	if err := j.client.XAdd(ctx, &redis.XAddArgs{
		Stream: j.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("journal record: %w", err)
	}

	slog.DebugContext(ctx, "journaled message event", "type", entry.Type, "message_id", entry.MessageID)
	return nil
}

func (j *redisJournal) Close() error {
	return j.client.Close()
}

// Nop is used when Redis is not configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Close() error                        { return nil }
