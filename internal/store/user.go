package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"chatwire.app/server/internal/model"
)

const userColumns = `id, username, email, avatar, is_online, last_seen, created_at, updated_at`

type userStore struct {
	q Querier
}

func newUserStore(q Querier) UserStore {
	return &userStore{q: q}
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *userStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO users (id, username, email, avatar, is_online, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.Avatar, user.IsOnline, user.LastSeen)
	created, err := scanUser(row)
	if err != nil {
		return err
	}
	*user = *created
	return nil
}

func (s *userStore) List(ctx context.Context, excludeID int64) ([]model.User, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id <> $1
		ORDER BY is_online DESC, last_seen DESC`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return collectUsers(rows)
}

func (s *userStore) Search(ctx context.Context, q string, excludeID int64, limit int32) ([]model.User, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id <> $1 AND (username ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		LIMIT $3`, excludeID, q, limit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return collectUsers(rows)
}

func (s *userStore) UpdateProfile(ctx context.Context, id int64, username, avatar *string) (*model.User, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			avatar = COALESCE($3, avatar),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, username, avatar)
	return scanUser(row)
}

func (s *userStore) SetPresence(ctx context.Context, id int64, online bool, lastSeen time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE users SET is_online = $2, last_seen = $3, updated_at = now()
		WHERE id = $1`, id, online, lastSeen)
	if err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.IsOnline, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.IsOnline, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
