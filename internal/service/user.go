package service

import (
	"context"
	"fmt"
	"log/slog"

	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/store"
)

const searchLimit = 10

type UserService interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// List returns everyone except the caller, online users first.
	List(ctx context.Context, callerID int64) ([]model.User, error)
	Search(ctx context.Context, callerID int64, q string) ([]model.User, error)
	UpdateProfile(ctx context.Context, callerID int64, username, avatar *string) (*model.User, error)
}

type userService struct {
	userStore store.UserStore
}

func NewUserService(userStore store.UserStore) UserService {
	return &userService{userStore: userStore}
}

func (s *userService) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return s.userStore.GetByID(ctx, userID)
}

func (s *userService) List(ctx context.Context, callerID int64) ([]model.User, error) {
	users, err := s.userStore.List(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *userService) Search(ctx context.Context, callerID int64, q string) ([]model.User, error) {
	users, err := s.userStore.Search(ctx, q, callerID, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateProfile(ctx context.Context, callerID int64, username, avatar *string) (*model.User, error) {
	user, err := s.userStore.UpdateProfile(ctx, callerID, username, avatar)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update profile", "error", err)
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}
