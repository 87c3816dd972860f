package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/events"
)

// AuthModule provides authentication and user account services.
type AuthModule struct {
	db       *gorm.DB
	service  *AuthService
	dbPath   string
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule() *AuthModule {
	dbPath := os.Getenv("CONTACTS_DB_PATH")
	if dbPath == "" {
		dbPath = "contacts.db"
	}
	return &AuthModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// sqliteDSN appends a busy timeout so writers from other modules sharing
// the database file wait instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	return path + "?_busy_timeout=5000"
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(sqliteDSN(m.dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := NewUserRepository(db)
	hasher := NewPasswordHasher(loadBcryptCost())
	jwtManager := NewJWTManager(loadJWTConfig())

	m.service = NewAuthService(repo, jwtManager, hasher)
	m.service.SetEventBus(m.eventBus)

	log.Printf("[auth] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// SetEventBus receives the event bus from the framework.
func (m *AuthModule) SetEventBus(eventBus mono.EventBus) {
	m.eventBus = eventBus
	if m.service != nil {
		m.service.SetEventBus(eventBus)
	}
}

// EmitEvents declares the events this module publishes.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
		events.ConfirmationRequestedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"register", func() error {
			return helper.RegisterTypedRequestReplyService(container, "register",
				json.Unmarshal, json.Marshal, m.handleRegister)
		}},
		{"login", func() error {
			return helper.RegisterTypedRequestReplyService(container, "login",
				json.Unmarshal, json.Marshal, m.handleLogin)
		}},
		{"refresh-token", func() error {
			return helper.RegisterTypedRequestReplyService(container, "refresh-token",
				json.Unmarshal, json.Marshal, m.handleRefresh)
		}},
		{"validate-token", func() error {
			return helper.RegisterTypedRequestReplyService(container, "validate-token",
				json.Unmarshal, json.Marshal, m.handleValidateToken)
		}},
		{"get-user", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-user",
				json.Unmarshal, json.Marshal, m.handleGetUser)
		}},
		{"confirm-email", func() error {
			return helper.RegisterTypedRequestReplyService(container, "confirm-email",
				json.Unmarshal, json.Marshal, m.handleConfirmEmail)
		}},
		{"request-confirmation", func() error {
			return helper.RegisterTypedRequestReplyService(container, "request-confirmation",
				json.Unmarshal, json.Marshal, m.handleRequestConfirmation)
		}},
		{"update-avatar", func() error {
			return helper.RegisterTypedRequestReplyService(container, "update-avatar",
				json.Unmarshal, json.Marshal, m.handleUpdateAvatar)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[auth] Registered services: register, login, refresh-token, validate-token, get-user, confirm-email, request-confirmation, update-avatar")
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	resp, err := m.service.Register(ctx, req)
	if err != nil {
		return RegisterResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	resp, err := m.service.Login(ctx, req)
	if err != nil {
		return LoginResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	resp, err := m.service.RefreshTokens(ctx, req)
	if err != nil {
		return RefreshResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateRequest, _ *mono.Msg) (ValidateResponse, error) {
	resp, err := m.service.ValidateToken(ctx, req)
	if err != nil {
		return ValidateResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	resp, err := m.service.GetUser(ctx, req)
	if err != nil {
		return GetUserResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleConfirmEmail(ctx context.Context, req ConfirmEmailRequest, _ *mono.Msg) (ConfirmEmailResponse, error) {
	resp, err := m.service.ConfirmEmail(ctx, req)
	if err != nil {
		return ConfirmEmailResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleRequestConfirmation(ctx context.Context, req RequestConfirmationRequest, _ *mono.Msg) (RequestConfirmationResponse, error) {
	resp, err := m.service.RequestConfirmation(ctx, req)
	if err != nil {
		return RequestConfirmationResponse{}, err
	}
	return *resp, nil
}

func (m *AuthModule) handleUpdateAvatar(ctx context.Context, req UpdateAvatarRequest, _ *mono.Msg) (UpdateAvatarResponse, error) {
	resp, err := m.service.UpdateAvatar(ctx, req)
	if err != nil {
		return UpdateAvatarResponse{}, err
	}
	return *resp, nil
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}

func loadBcryptCost() int {
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil {
			return cost
		}
	}
	return 12
}
