package auth

import "github.com/example/contacts-api/domain/user"

// RegisterRequest is the request for the register service.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is the response from the register service.
type RegisterResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// LoginRequest is the request for the login service.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response from the login service.
type LoginResponse struct {
	user.TokenPair
}

// RefreshRequest is the request for the refresh-token service.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is the response from the refresh-token service.
type RefreshResponse struct {
	user.TokenPair
}

// ValidateRequest is the request for the validate-token service.
type ValidateRequest struct {
	AccessToken string `json:"access_token"`
}

// ValidateResponse is the response from the validate-token service.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Error  string `json:"error,omitempty"`
}

// GetUserRequest is the request for the get-user service.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse is the response from the get-user service.
type GetUserResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Confirmed bool   `json:"confirmed"`
	CreatedAt string `json:"created_at"`
}

// ConfirmEmailRequest is the request for the confirm-email service.
type ConfirmEmailRequest struct {
	Token string `json:"token"`
}

// ConfirmEmailResponse is the response from the confirm-email service.
type ConfirmEmailResponse struct {
	Message string `json:"message"`
}

// RequestConfirmationRequest is the request for the request-confirmation
// service.
type RequestConfirmationRequest struct {
	Email string `json:"email"`
}

// RequestConfirmationResponse is the response from the request-confirmation
// service.
type RequestConfirmationResponse struct {
	Message string `json:"message"`
}

// UpdateAvatarRequest is the request for the update-avatar service.
type UpdateAvatarRequest struct {
	UserID    string `json:"user_id"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateAvatarResponse is the response from the update-avatar service.
type UpdateAvatarResponse struct {
	UserID    string `json:"user_id"`
	AvatarURL string `json:"avatar_url"`
}
