package auth

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	"github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/events"
)

var (
	// ErrInvalidCredentials is returned for every failed login. The cause
	// (unknown email, wrong password, unconfirmed account) is never exposed
	// to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotConfirmed is returned when an operation requires a
	// confirmed account.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrAlreadyConfirmed signals that the email was already confirmed.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
	// ErrValidation is returned when request fields fail validation.
	ErrValidation = errors.New("validation failed")
)

// AuthService implements registration, login, token refresh and email
// confirmation on top of UserRepository, JWTManager and PasswordHasher.
type AuthService struct {
	repo     *UserRepository
	jwt      *JWTManager
	hasher   *PasswordHasher
	eventBus mono.EventBus
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, jwt *JWTManager, hasher *PasswordHasher) *AuthService {
	return &AuthService{
		repo:   repo,
		jwt:    jwt,
		hasher: hasher,
	}
}

// SetEventBus sets the event bus used to publish auth events.
func (s *AuthService) SetEventBus(eventBus mono.EventBus) {
	s.eventBus = eventBus
}

// Register creates a new user account and publishes a UserRegistered event
// carrying the confirmation token for the mailer.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    gravatarURL(email),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.publishRegistered(u); err != nil {
		// The account exists either way; the user can request a new
		// confirmation email.
		return nil, fmt.Errorf("failed to publish registration event: %w", err)
	}

	return &RegisterResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}, nil
}

// Login verifies credentials and issues a token pair. Any failure, including
// an unconfirmed account, yields the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !u.Confirmed {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, u, func(refresh string) error {
		return s.repo.SetRefreshToken(ctx, u.ID, refresh)
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{TokenPair: *pair}, nil
}

// RefreshTokens rotates the refresh token. Presenting a refresh token that
// is valid but no longer stored is treated as reuse after rotation and
// invalidates the whole chain.
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, u, func(refresh string) error {
		rotateErr := s.repo.RotateRefreshToken(ctx, u.ID, req.RefreshToken, refresh)
		if errors.Is(rotateErr, ErrRefreshTokenMismatch) {
			// Reuse of a rotated token. Revoke everything.
			if clearErr := s.repo.ClearRefreshToken(ctx, u.ID); clearErr != nil {
				return clearErr
			}
			return ErrInvalidToken
		}
		return rotateErr
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResponse{TokenPair: *pair}, nil
}

// ValidateToken checks an access token and returns its claims.
func (s *AuthService) ValidateToken(_ context.Context, req ValidateRequest) (*ValidateResponse, error) {
	claims, err := s.jwt.ValidateAccessToken(req.AccessToken)
	if err != nil {
		return &ValidateResponse{Valid: false, Error: err.Error()}, nil
	}

	return &ValidateResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// GetUser returns the user profile for the given ID.
func (s *AuthService) GetUser(ctx context.Context, req GetUserRequest) (*GetUserResponse, error) {
	u, err := s.repo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return &GetUserResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ConfirmEmail marks the account confirmed. Confirming an already confirmed
// account is not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) (*ConfirmEmailResponse, error) {
	claims, err := s.jwt.ValidateConfirmationToken(req.Token)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if u.Confirmed {
		return &ConfirmEmailResponse{Message: "email already confirmed"}, nil
	}

	if err := s.repo.MarkConfirmed(ctx, u.ID); err != nil {
		return nil, err
	}

	return &ConfirmEmailResponse{Message: "email confirmed"}, nil
}

// RequestConfirmation re-sends the confirmation email. The response does not
// reveal whether the address is registered.
func (s *AuthService) RequestConfirmation(ctx context.Context, req RequestConfirmationRequest) (*RequestConfirmationResponse, error) {
	resp := &RequestConfirmationResponse{Message: "if the account exists, a confirmation email has been sent"}

	u, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return resp, nil
		}
		return nil, err
	}

	if u.Confirmed {
		return resp, nil
	}

	token, err := s.jwt.GenerateConfirmationToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		event := events.ConfirmationRequestedEvent{
			UserID:            u.ID,
			Username:          u.Username,
			Email:             u.Email,
			ConfirmationToken: token,
			RequestedAt:       time.Now().UTC(),
		}
		if err := events.ConfirmationRequestedV1.Publish(s.eventBus, event, nil); err != nil {
			return nil, fmt.Errorf("failed to publish confirmation event: %w", err)
		}
	}

	return resp, nil
}

// UpdateAvatar stores a new avatar URL for the user.
func (s *AuthService) UpdateAvatar(ctx context.Context, req UpdateAvatarRequest) (*UpdateAvatarResponse, error) {
	if err := s.repo.UpdateAvatar(ctx, req.UserID, req.AvatarURL); err != nil {
		return nil, err
	}

	return &UpdateAvatarResponse{
		UserID:    req.UserID,
		AvatarURL: req.AvatarURL,
	}, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, u *user.User, store func(refresh string) error) (*user.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.jwt.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := store(refresh); err != nil {
		return nil, err
	}

	return &user.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) publishRegistered(u *user.User) error {
	if s.eventBus == nil {
		return nil
	}

	token, err := s.jwt.GenerateConfirmationToken(u.ID, u.Email)
	if err != nil {
		return err
	}

	event := events.UserRegisteredEvent{
		UserID:            u.ID,
		Username:          u.Username,
		Email:             u.Email,
		ConfirmationToken: token,
		RegisteredAt:      time.Now().UTC(),
	}
	return events.UserRegisteredV1.Publish(s.eventBus, event, nil)
}

func validateRegister(req RegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	if len(username) < 2 || len(username) > 50 {
		return fmt.Errorf("%w: username must be 2-50 characters", ErrValidation)
	}

	email := normalizeEmail(req.Email)
	if len(email) < 3 || len(email) > 250 || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// gravatarURL builds the default avatar URL for a newly registered user.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", sum)
}
