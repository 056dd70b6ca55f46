package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"chatwire.app/server/internal/model"
)

const conversationColumns = `id, participant_a, participant_b, last_message_id, last_message_at, unread, created_at, updated_at`

type conversationStore struct {
	q Querier
}

func newConversationStore(q Querier) ConversationStore {
	return &conversationStore{q: q}
}

func (s *conversationStore) FindByParticipants(ctx context.Context, a, b int64) (*model.Conversation, error) {
	pa, pb := model.NormalizePair(a, b)
	// No uniqueness constraint on the pair; if a create race produced
	// duplicates, the oldest row wins.
	row := s.q.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE participant_a = $1 AND participant_b = $2
		ORDER BY created_at ASC
		LIMIT 1`, pa, pb)
	return scanConversation(row)
}

func (s *conversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	pa, pb := model.NormalizePair(conv.ParticipantA, conv.ParticipantB)
	unread, err := marshalUnread(conv.Unread)
	if err != nil {
		return err
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, last_message_id, last_message_at, unread)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+conversationColumns,
		conv.ID, pa, pb, conv.LastMessageID, conv.LastMessageAt, unread)
	created, err := scanConversation(row)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	*conv = *created
	return nil
}

func (s *conversationStore) UpdateForMessage(ctx context.Context, id, messageID int64, at time.Time, receiver int64) error {
	key := strconv.FormatInt(receiver, 10)
	tag, err := s.q.Exec(ctx, `
		UPDATE conversations SET
			last_message_id = $2,
			last_message_at = $3,
			unread = jsonb_set(unread, ARRAY[$4], (COALESCE((unread->>$4)::int, 0) + 1)::text::jsonb),
			updated_at = now()
		WHERE id = $1`, id, messageID, at, key)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *conversationStore) ResetUnread(ctx context.Context, id, userID int64) error {
	key := strconv.FormatInt(userID, 10)
	_, err := s.q.Exec(ctx, `
		UPDATE conversations SET
			unread = jsonb_set(unread, ARRAY[$2], '0'::jsonb),
			updated_at = now()
		WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("resetting unread count: %w", err)
	}
	return nil
}

func (s *conversationStore) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		conv, err := scanConversationRow(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	conv, err := scanConversationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return conv, nil
}

func scanConversationRow(row pgx.Row) (*model.Conversation, error) {
	var (
		conv   model.Conversation
		unread []byte
	)
	err := row.Scan(&conv.ID, &conv.ParticipantA, &conv.ParticipantB,
		&conv.LastMessageID, &conv.LastMessageAt, &unread, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	conv.Kind = model.KindHuman
	conv.Unread, err = unmarshalUnread(unread)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func marshalUnread(counts map[int64]int) ([]byte, error) {
	byKey := make(map[string]int, len(counts))
	for userID, n := range counts {
		byKey[strconv.FormatInt(userID, 10)] = n
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return nil, fmt.Errorf("encoding unread counters: %w", err)
	}
	return data, nil
}

func unmarshalUnread(data []byte) (map[int64]int, error) {
	byKey := make(map[string]int)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &byKey); err != nil {
			return nil, fmt.Errorf("decoding unread counters: %w", err)
		}
	}
	counts := make(map[int64]int, len(byKey))
	for key, n := range byKey {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decoding unread counters: bad key %q", key)
		}
		counts[userID] = n
	}
	return counts, nil
}
