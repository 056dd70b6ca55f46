package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the stores need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Stores struct {
	q Querier
}

func NewStores(q Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.q)
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.q)
}

func (s *Stores) Conversations() ConversationStore {
	return newConversationStore(s.q)
}
