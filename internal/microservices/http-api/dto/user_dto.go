package dto

import (
	"time"

	"libraryhub/internal/microservices/http-api/models"
)

// UserResponse is the safe view of an account; the password hash never leaves the service.
type UserResponse struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	FullName      string     `json:"full_name"`
	IsAdmin       bool       `json:"is_admin"`
	Email         *string    `json:"email,omitempty"`
	ProfileImage  *string    `json:"profile_image,omitempty"`
	OAuthProvider *string    `json:"oauth_provider,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// UpdateUserRequest: admin edit of an account. Unknown fields such as
// password are ignored.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	FullName *string `json:"full_name" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email"`
	IsAdmin  *bool   `json:"is_admin"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		IsAdmin:       u.IsAdmin,
		Email:         u.Email,
		ProfileImage:  u.ProfileImage,
		OAuthProvider: u.OAuthProvider,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
}

func NewUserListResponse(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
