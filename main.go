package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"

	"github.com/example/contacts-api/middleware/ratelimit"
	apimod "github.com/example/contacts-api/modules/api"
	authmod "github.com/example/contacts-api/modules/auth"
	avatarsmod "github.com/example/contacts-api/modules/avatars"
	contactsmod "github.com/example/contacts-api/modules/contacts"
	mailermod "github.com/example/contacts-api/modules/mailer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	storagePath := getEnv("STORAGE_PATH", "/tmp/contacts-api")

	log.Println("=== Contacts API ===")
	log.Printf("Storage Path: %s", storagePath)

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(storagePath),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Avatar storage on the embedded JetStream object store
	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        "avatars",
				Description: "User avatar storage",
				MaxBytes:    512 * 1024 * 1024,
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	// Rate limiting middleware on the service bus, keyed by the X-Client-ID
	// header of direct NATS callers. HTTP traffic shares one bus identity,
	// so its per-client budgets are enforced in the api module; the bus
	// limit is a generous backstop.
	rateLimitOpts := append(
		ratelimit.FromEnv(),
		ratelimit.WithDefaultLimit(1000, time.Minute),
	)
	rateLimitMiddleware, err := ratelimit.New(rateLimitOpts...)
	if err != nil {
		log.Fatalf("Failed to create rate limiting middleware: %v", err)
	}

	// Create modules
	authModule := authmod.NewModule()
	contactsModule := contactsmod.NewModule()
	mailerModule := mailermod.NewModule()
	avatarModule := avatarsmod.NewModule(app.Logger())
	apiModule := apimod.NewModule(avatarModule, rateLimitMiddleware.Limiter, apimod.DefaultRouteLimits())

	// Middleware must be registered before regular modules so it can
	// intercept their service registrations.
	app.Register(rateLimitMiddleware)

	app.Register(authModule)
	app.Register(contactsModule)
	app.Register(mailerModule)
	app.Register(avatarModule)
	app.Register(apiModule)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Println("Endpoints:")
	log.Println("  GET    /health                                  - Health check")
	log.Println("  POST   /api/v1/auth/signup                      - Register a new account")
	log.Println("  POST   /api/v1/auth/login                       - Log in")
	log.Println("  POST   /api/v1/auth/refresh                     - Rotate the refresh token")
	log.Println("  GET    /api/v1/auth/confirmed_email/:token      - Confirm an email address")
	log.Println("  POST   /api/v1/auth/request_email               - Re-send the confirmation email")
	log.Println("  GET    /api/v1/users/me                         - Current user profile")
	log.Println("  PATCH  /api/v1/users/avatar                     - Upload an avatar")
	log.Println("  GET    /api/v1/avatars/:id                      - Download an avatar")
	log.Println("  POST   /api/v1/contacts                         - Create a contact")
	log.Println("  GET    /api/v1/contacts                         - List contacts")
	log.Println("  GET    /api/v1/contacts/search?q=               - Search contacts")
	log.Println("  GET    /api/v1/contacts/upcoming-birthdays      - Birthdays in the next week")
	log.Println("  GET    /api/v1/contacts/:id                     - Get a contact")
	log.Println("  PUT    /api/v1/contacts/:id                     - Update a contact")
	log.Println("  DELETE /api/v1/contacts/:id                     - Delete a contact")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
