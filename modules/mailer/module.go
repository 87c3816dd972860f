package mailer

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/contacts-api/events"
)

// MailerModule sends confirmation emails in response to auth events.
type MailerModule struct {
	queue   *Queue
	baseURL string
}

// Compile-time interface checks.
var _ mono.Module = (*MailerModule)(nil)
var _ mono.EventConsumerModule = (*MailerModule)(nil)
var _ mono.HealthCheckableModule = (*MailerModule)(nil)

// NewModule creates a new MailerModule configured from the environment.
func NewModule() *MailerModule {
	sender := NewSMTPSender(
		envOr("SMTP_HOST", "localhost"),
		envIntOr("SMTP_PORT", 587),
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
		envOr("SMTP_FROM", "noreply@example.com"),
	)

	return &MailerModule{
		queue:   NewQueue(DefaultQueueConfig(), sender),
		baseURL: envOr("PUBLIC_BASE_URL", "http://localhost:3000"),
	}
}

// Name returns the module name.
func (m *MailerModule) Name() string {
	return "mailer"
}

// Start launches the delivery queue.
func (m *MailerModule) Start(ctx context.Context) error {
	if err := m.queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery queue: %w", err)
	}
	log.Println("[mailer] Module started - listening for auth events")
	return nil
}

// Stop drains the delivery queue.
func (m *MailerModule) Stop(ctx context.Context) error {
	if err := m.queue.Stop(ctx); err != nil {
		return err
	}
	log.Println("[mailer] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *MailerModule) Health(_ context.Context) mono.HealthStatus {
	m.queue.mu.RLock()
	running := m.queue.running
	m.queue.mu.RUnlock()

	if !running {
		return mono.HealthStatus{
			Healthy: false,
			Message: "delivery queue not running",
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"queued": len(m.queue.jobs),
		},
	}
}

// RegisterEventConsumers subscribes to auth events.
func (m *MailerModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ConfirmationRequestedV1, m.handleConfirmationRequested, m); err != nil {
		return fmt.Errorf("failed to register ConfirmationRequested consumer: %w", err)
	}

	log.Printf("[mailer] Registered event consumers: UserRegistered, ConfirmationRequested")
	return nil
}

func (m *MailerModule) handleUserRegistered(_ context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	return m.enqueueConfirmation(event.Email, event.Username, event.ConfirmationToken)
}

func (m *MailerModule) handleConfirmationRequested(_ context.Context, event events.ConfirmationRequestedEvent, _ *mono.Msg) error {
	return m.enqueueConfirmation(event.Email, event.Username, event.ConfirmationToken)
}

func (m *MailerModule) enqueueConfirmation(to, username, token string) error {
	confirmURL := fmt.Sprintf("%s/api/v1/auth/confirmed_email/%s", m.baseURL, token)

	body, err := RenderConfirmationEmail(username, confirmURL)
	if err != nil {
		return err
	}

	if err := m.queue.Enqueue(Message{
		To:      to,
		Subject: "Confirm your email",
		Body:    body,
	}); err != nil {
		// Dropped mail is recoverable through request_email, so log and ack.
		log.Printf("[mailer] dropping confirmation email for %s: %v", to, err)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
