package api

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/contacts-api/middleware/ratelimit"
	"github.com/example/contacts-api/modules/auth"
	"github.com/example/contacts-api/modules/avatars"
)

// APIModule is the HTTP API module.
type APIModule struct {
	app               *fiber.App
	authContainer     mono.ServiceContainer
	contactsContainer mono.ServiceContainer
	authAdapter       auth.AuthPort
	avatarModule      *avatars.Module
	limiter           func() *ratelimit.Limiter
	routeLimits       RouteLimits
	listenAddr        string
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule. The avatar module is passed directly
// because it exposes a storage service rather than request-reply services.
// limiter supplies the shared Redis limiter for per-client HTTP budgets
// and may be nil to disable them.
func NewModule(avatarModule *avatars.Module, limiter func() *ratelimit.Limiter, limits RouteLimits) *APIModule {
	addr := os.Getenv("HTTP_LISTEN_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return &APIModule{
		avatarModule: avatarModule,
		limiter:      limiter,
		routeLimits:  limits,
		listenAddr:   addr,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "contacts"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authContainer = container
		m.authAdapter = auth.NewAuthAdapter(container)
	case "contacts":
		m.contactsContainer = container
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authContainer == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.contactsContainer == nil {
		return fmt.Errorf("contacts dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             8 * 1024 * 1024,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New())

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(m.listenAddr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.listenAddr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr": m.listenAddr,
		},
	}
}

// setupRoutes configures all API routes.
func (m *APIModule) setupRoutes() {
	avatarService := func() *avatars.Service {
		if m.avatarModule == nil {
			return nil
		}
		return m.avatarModule.Service()
	}
	handlers := NewHandlers(m.authContainer, m.contactsContainer, m.authAdapter, avatarService)

	// Health check endpoint
	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	// API v1 routes. The group-wide budget runs before authentication and
	// keys on the remote address; route-specific budgets attached after
	// AuthMiddleware key on the user ID.
	v1 := m.app.Group("/api/v1")
	v1.Use(rateLimitHandler(m.limiter, "api", m.routeLimits.Default))

	// Public auth routes
	authRoutes := v1.Group("/auth")
	authRoutes.Post("/signup", handlers.Signup)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)
	authRoutes.Get("/confirmed_email/:token", handlers.ConfirmEmail)
	authRoutes.Post("/request_email", handlers.RequestEmail)

	// Public avatar download
	v1.Get("/avatars/:id", handlers.GetAvatar)

	// Protected routes (require authentication)
	protected := v1.Group("")
	protected.Use(AuthMiddleware(m.authAdapter))

	protected.Get("/users/me", handlers.Me)
	protected.Patch("/users/avatar", handlers.UpdateAvatar)

	contactRoutes := protected.Group("/contacts")
	contactRoutes.Post("/", handlers.CreateContact)
	contactRoutes.Get("/",
		rateLimitHandler(m.limiter, "list-contacts", m.routeLimits.limitFor("list-contacts")),
		handlers.ListContacts)
	contactRoutes.Get("/search", handlers.SearchContacts)
	contactRoutes.Get("/upcoming-birthdays", handlers.UpcomingBirthdays)
	contactRoutes.Get("/:id", handlers.GetContact)
	contactRoutes.Put("/:id", handlers.UpdateContact)
	contactRoutes.Delete("/:id", handlers.DeleteContact)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
