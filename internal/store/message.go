package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"chatwire.app/server/internal/model"
)

const messageColumns = `id, sender_id, receiver_id, content, kind, delivered, delivered_at, read, read_at, created_at`

type messageStore struct {
	q Querier
}

func newMessageStore(q Querier) MessageStore {
	return &messageStore{q: q}
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, kind, delivered, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+messageColumns,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.Kind, msg.Delivered, msg.DeliveredAt)
	created, err := scanMessage(row)
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	*msg = *created
	return nil
}

func (s *messageStore) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	row := s.q.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (s *messageStore) ListBetween(ctx context.Context, a, b int64, limit, offset int32) ([]model.Message, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, a, b, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *messageStore) ListAssistantThread(ctx context.Context, owner int64, limit, offset int32) ([]model.Message, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND kind = 'user' AND receiver_id IS NULL)
		   OR (kind = 'ai' AND receiver_id IS NULL)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assistant thread: %w", err)
	}
	return collectMessages(rows)
}

func (s *messageStore) MarkRead(ctx context.Context, ids []int64, receiver int64, at time.Time) ([]model.Message, error) {
	// Monotonic: only unread rows flip, so re-marking is a no-op.
	rows, err := s.q.Query(ctx, `
		UPDATE messages SET read = TRUE, read_at = $3
		WHERE id = ANY($1) AND receiver_id = $2 AND NOT read
		RETURNING `+messageColumns, ids, receiver, at)
	if err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}
	return collectMessages(rows)
}

func (s *messageStore) MarkThreadRead(ctx context.Context, receiver, peer int64, at time.Time) error {
	_, err := s.q.Exec(ctx, `
		UPDATE messages SET read = TRUE, read_at = $3
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT read`, receiver, peer, at)
	if err != nil {
		return fmt.Errorf("marking thread read: %w", err)
	}
	return nil
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Kind,
		&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]model.Message, error) {
	defer rows.Close()
	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Kind,
			&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
