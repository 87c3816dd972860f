package api

import (
	"encoding/json"
	"io"
	"log"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/modules/auth"
	"github.com/example/contacts-api/modules/avatars"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authContainer     mono.ServiceContainer
	contactsContainer mono.ServiceContainer
	authAdapter       auth.AuthPort
	avatarService     func() *avatars.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authContainer, contactsContainer mono.ServiceContainer,
	authAdapter auth.AuthPort,
	avatarService func() *avatars.Service,
) *Handlers {
	return &Handlers{
		authContainer:     authContainer,
		contactsContainer: contactsContainer,
		authAdapter:       authAdapter,
		avatarService:     avatarService,
	}
}

// Signup handles user registration.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.Username == "" {
		return badRequest(c, "Username, email and password are required")
	}

	authReq := auth.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.RegisterResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"register",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        resp.UserID,
		Username:  resp.Username,
		Email:     resp.Email,
		AvatarURL: resp.AvatarURL,
	})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	authReq := auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}
	var resp auth.LoginResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"login",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	})
}

// Refresh handles token refresh. The token is taken from the JSON body,
// falling back to the Authorization header for bearer-style clients.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	token := refreshTokenFromRequest(c)
	if token == "" {
		return badRequest(c, "Refresh token is required")
	}

	authReq := auth.RefreshRequest{
		RefreshToken: token,
	}
	var resp auth.RefreshResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	})
}

// ConfirmEmail handles email confirmation links.
func (h *Handlers) ConfirmEmail(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return badRequest(c, "Confirmation token is required")
	}

	authReq := auth.ConfirmEmailRequest{Token: token}
	var resp auth.ConfirmEmailResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"confirm-email",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.confirmationError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: resp.Message})
}

// refreshTokenFromRequest extracts the refresh token from the request body,
// falling back to an Authorization: Bearer header.
func refreshTokenFromRequest(c *fiber.Ctx) string {
	var req RefreshRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return bearerToken(c)
}

// confirmationError maps confirm-email failures. A bad or expired
// confirmation token is a client error, not an authentication failure.
func (h *Handlers) confirmationError(c *fiber.Ctx, err error) error {
	if isTokenError(err.Error()) {
		return badRequest(c, "Verification error")
	}
	return h.handleServiceError(c, err)
}

// RequestEmail re-sends the confirmation email.
func (h *Handlers) RequestEmail(c *fiber.Ctx) error {
	var req RequestEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return badRequest(c, "Email is required")
	}

	authReq := auth.RequestConfirmationRequest{Email: req.Email}
	var resp auth.RequestConfirmationResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"request-confirmation",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: resp.Message})
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	if !ok {
		return unauthenticated(c)
	}

	user, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve user profile",
		})
	}

	return c.Status(fiber.StatusOK).JSON(UserResponse{
		ID:        user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	})
}

// UpdateAvatar stores a new avatar image for the authenticated user.
func (h *Handlers) UpdateAvatar(c *fiber.Ctx) error {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	if !ok {
		return unauthenticated(c)
	}

	svc := h.avatarService()
	if svc == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Avatar storage is not available",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "Multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if _, err := svc.Store(c.UserContext(), claims.UserID, data, contentType); err != nil {
		return avatarError(c, err)
	}

	avatarURL := "/api/v1/avatars/" + claims.UserID
	if err := h.authAdapter.UpdateAvatar(c.UserContext(), claims.UserID, avatarURL); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to update avatar",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"avatar_url": avatarURL,
	})
}

// GetAvatar serves a stored avatar image.
func (h *Handlers) GetAvatar(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	svc := h.avatarService()
	if svc == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Avatar storage is not available",
		})
	}

	data, info, err := svc.Get(c.UserContext(), userID)
	if err != nil {
		return avatarError(c, err)
	}

	c.Set("Content-Type", info.ContentType)
	return c.Status(fiber.StatusOK).Send(data)
}

func avatarError(c *fiber.Ctx, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "avatar not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Avatar not found",
		})
	case strings.Contains(errStr, "unsupported image type"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Only JPEG, PNG, GIF and WebP images are accepted",
		})
	case strings.Contains(errStr, "exceeds maximum size"):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   "too_large",
			Message: "Avatar must be at most 5MB",
		})
	case strings.Contains(errStr, "file is empty"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Avatar file is empty",
		})
	default:
		log.Printf("[api] Avatar error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// handleServiceError maps service errors to HTTP responses. Errors arrive as
// strings over the service bus, so matching is by message.
func (h *Handlers) handleServiceError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid credentials"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid credentials",
		})
	case strings.Contains(errStr, "email already registered"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Email already registered",
		})
	case strings.Contains(errStr, "validation failed"):
		return badRequest(c, validationMessage(errStr))
	case isTokenError(errStr):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	case strings.Contains(errStr, "contact not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Contact not found",
		})
	case strings.Contains(errStr, "user not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User not found",
		})
	case strings.Contains(errStr, "rate limit exceeded"):
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
			Error:   "rate_limited",
			Message: "Too many requests, slow down",
		})
	default:
		// Log the actual error but don't expose it to the client
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// isTokenError reports whether a service error is a token validation
// failure. Errors cross the service bus as strings.
func isTokenError(errStr string) bool {
	return strings.Contains(errStr, "invalid token") || strings.Contains(errStr, "token has expired")
}

// validationMessage extracts the human-readable part after the
// "validation failed:" prefix.
func validationMessage(errStr string) string {
	if idx := strings.Index(errStr, "validation failed"); idx >= 0 {
		msg := errStr[idx:]
		return strings.TrimSpace(msg)
	}
	return "Validation failed"
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}
