package handler

import (
	"time"

	"ruconnect/internal/auth"
)

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromUser converts a user to its HTTP response.
func FromUser(user *auth.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

// LoginResponse is the HTTP response for POST /auth/login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	SessionID   string        `json:"session_id"`
	User        *UserResponse `json:"user"`
}

// FromLoginResult converts a login result to its HTTP response.
// ExpiresIn is seconds, matching the OAuth2 token response convention.
func FromLoginResult(result *auth.LoginResult) *LoginResponse {
	return &LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(result.ExpiresIn.Seconds()),
		SessionID:   result.Session.ID.String(),
		User:        FromUser(result.User),
	}
}
