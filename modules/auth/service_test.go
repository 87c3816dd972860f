package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func setupTestService(t *testing.T) (*AuthService, *UserRepository, *JWTManager) {
	t.Helper()

	repo := NewUserRepository(setupTestDB(t))
	jwtManager := NewJWTManager(testJWTConfig())
	hasher := NewPasswordHasher(bcrypt.MinCost)

	return NewAuthService(repo, jwtManager, hasher), repo, jwtManager
}

func registerUser(t *testing.T, svc *AuthService, email string) *RegisterResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Username: "tester",
		Email:    email,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return resp
}

func TestAuthService_Register(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "new@example.com")

	if resp.UserID == "" {
		t.Error("expected non-empty user ID")
	}
	if !strings.HasPrefix(resp.AvatarURL, "https://www.gravatar.com/avatar/") {
		t.Errorf("expected gravatar default avatar, got %q", resp.AvatarURL)
	}

	u, err := repo.FindByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if u.Confirmed {
		t.Error("new account must start unconfirmed")
	}
	if u.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{
			Username: "other",
			Email:    "NEW@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{
			name: "short password",
			req:  RegisterRequest{Username: "tester", Email: "a@example.com", Password: "short"},
		},
		{
			name: "invalid email",
			req:  RegisterRequest{Username: "tester", Email: "not-an-email", Password: "password123"},
		},
		{
			name: "empty username",
			req:  RegisterRequest{Username: " ", Email: "a@example.com", Password: "password123"},
		},
		{
			name: "username too long",
			req:  RegisterRequest{Username: strings.Repeat("x", 51), Email: "a@example.com", Password: "password123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "login@example.com")

	t.Run("unconfirmed account", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "password123"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for unconfirmed account, got %v", err)
		}
	})

	if err := repo.MarkConfirmed(ctx, resp.UserID); err != nil {
		t.Fatalf("MarkConfirmed() error = %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		tokens, err := svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if tokens.AccessToken == "" || tokens.RefreshToken == "" {
			t.Error("expected both tokens to be issued")
		}
		if tokens.TokenType != "bearer" {
			t.Errorf("expected token type bearer, got %q", tokens.TokenType)
		}

		u, err := repo.FindByID(ctx, resp.UserID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if u.RefreshToken != tokens.RefreshToken {
			t.Error("issued refresh token was not stored")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong-pass"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_RefreshRotation(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "refresh@example.com")
	if err := repo.MarkConfirmed(ctx, resp.UserID); err != nil {
		t.Fatalf("MarkConfirmed() error = %v", err)
	}

	tokens, err := svc.Login(ctx, LoginRequest{Email: "refresh@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	rotated, err := svc.RefreshTokens(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshTokens() error = %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Error("expected a new refresh token after rotation")
	}

	t.Run("replay of rotated token revokes chain", func(t *testing.T) {
		_, err := svc.RefreshTokens(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken on replay, got %v", err)
		}

		// The current token was revoked by the replay.
		_, err = svc.RefreshTokens(ctx, RefreshRequest{RefreshToken: rotated.RefreshToken})
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken after revocation, got %v", err)
		}
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := svc.RefreshTokens(ctx, RefreshRequest{RefreshToken: rotated.AccessToken})
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestAuthService_ConfirmEmail(t *testing.T) {
	svc, repo, jwtManager := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "confirm@example.com")

	token, err := jwtManager.GenerateConfirmationToken(resp.UserID, "confirm@example.com")
	if err != nil {
		t.Fatalf("GenerateConfirmationToken() error = %v", err)
	}

	result, err := svc.ConfirmEmail(ctx, ConfirmEmailRequest{Token: token})
	if err != nil {
		t.Fatalf("ConfirmEmail() error = %v", err)
	}
	if result.Message != "email confirmed" {
		t.Errorf("unexpected message %q", result.Message)
	}

	u, err := repo.FindByID(ctx, resp.UserID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !u.Confirmed {
		t.Error("expected confirmed account")
	}

	t.Run("idempotent", func(t *testing.T) {
		result, err := svc.ConfirmEmail(ctx, ConfirmEmailRequest{Token: token})
		if err != nil {
			t.Fatalf("ConfirmEmail() error = %v", err)
		}
		if result.Message != "email already confirmed" {
			t.Errorf("unexpected message %q", result.Message)
		}
	})

	t.Run("access token rejected", func(t *testing.T) {
		access, err := jwtManager.GenerateAccessToken(resp.UserID, "confirm@example.com")
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		_, err = svc.ConfirmEmail(ctx, ConfirmEmailRequest{Token: access})
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestAuthService_RequestConfirmation(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "resend@example.com")

	t.Run("unknown address gets same reply", func(t *testing.T) {
		known, err := svc.RequestConfirmation(ctx, RequestConfirmationRequest{Email: "resend@example.com"})
		if err != nil {
			t.Fatalf("RequestConfirmation() error = %v", err)
		}
		unknown, err := svc.RequestConfirmation(ctx, RequestConfirmationRequest{Email: "nobody@example.com"})
		if err != nil {
			t.Fatalf("RequestConfirmation() error = %v", err)
		}
		if known.Message != unknown.Message {
			t.Error("responses must not reveal whether an account exists")
		}
	})

	t.Run("already confirmed gets same reply", func(t *testing.T) {
		if err := repo.MarkConfirmed(ctx, resp.UserID); err != nil {
			t.Fatalf("MarkConfirmed() error = %v", err)
		}
		confirmed, err := svc.RequestConfirmation(ctx, RequestConfirmationRequest{Email: "resend@example.com"})
		if err != nil {
			t.Fatalf("RequestConfirmation() error = %v", err)
		}
		unknown, err := svc.RequestConfirmation(ctx, RequestConfirmationRequest{Email: "nobody@example.com"})
		if err != nil {
			t.Fatalf("RequestConfirmation() error = %v", err)
		}
		if confirmed.Message != unknown.Message {
			t.Error("responses must not reveal confirmation state")
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	resp := registerUser(t, svc, "validate@example.com")
	if err := repo.MarkConfirmed(ctx, resp.UserID); err != nil {
		t.Fatalf("MarkConfirmed() error = %v", err)
	}

	tokens, err := svc.Login(ctx, LoginRequest{Email: "validate@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	result, err := svc.ValidateToken(ctx, ValidateRequest{AccessToken: tokens.AccessToken})
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid token, got error %q", result.Error)
	}
	if result.UserID != resp.UserID {
		t.Errorf("expected user ID %q, got %q", resp.UserID, result.UserID)
	}

	t.Run("garbage token", func(t *testing.T) {
		result, err := svc.ValidateToken(ctx, ValidateRequest{AccessToken: "garbage"})
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}
		if result.Valid {
			t.Error("expected invalid result for garbage token")
		}
	})
}
