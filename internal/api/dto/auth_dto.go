package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,strongpassword"`
}

// RefreshRequest payload for exchanging a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token            string    `json:"token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Username         string    `json:"username"`
	Roles            []string  `json:"roles"`
}

// TokenStatusResponse describes a validated token.
type TokenStatusResponse struct {
	Valid       bool     `json:"valid"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Authorities []string `json:"authorities"`
}

// MessageResponse carries a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
