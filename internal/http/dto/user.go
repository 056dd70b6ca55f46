package dto

import (
	"time"

	"chatwire.app/server/internal/model"
)

type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,min=1,max=64"`
	Avatar   *string `json:"avatar,omitempty" binding:"omitempty,max=2048"`
}

type UserResponse struct {
	ID       int64     `json:"id,string"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Avatar   *string   `json:"avatar,omitempty"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

func ToUserResponses(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *ToUserResponse(&users[i]))
	}
	return out
}

type UsersResponse struct {
	Count int            `json:"count"`
	Users []UserResponse `json:"users"`
}
