package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/middleware/ratelimit"
)

func TestDefaultRouteLimits(t *testing.T) {
	limits := DefaultRouteLimits()

	tests := []struct {
		name       string
		route      string
		wantLimit  int
		wantWindow time.Duration
	}{
		{
			name:       "listing has its own budget",
			route:      "list-contacts",
			wantLimit:  10,
			wantWindow: time.Minute,
		},
		{
			name:       "unknown route falls back to default",
			route:      "create-contact",
			wantLimit:  100,
			wantWindow: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := limits.limitFor(tt.route)
			if budget.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", budget.Limit, tt.wantLimit)
			}
			if budget.Window != tt.wantWindow {
				t.Errorf("window = %v, want %v", budget.Window, tt.wantWindow)
			}
		})
	}
}

func TestClientIdentity(t *testing.T) {
	t.Run("authenticated requests key on the user ID", func(t *testing.T) {
		var got string
		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			c.Locals(UserContextKey, &domain.Claims{UserID: "user-7", Email: "a@example.com"})
			got = clientIdentity(c)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		resp.Body.Close()

		if got != "user:user-7" {
			t.Errorf("clientIdentity() = %q, want %q", got, "user:user-7")
		}
	})

	t.Run("anonymous requests key on the remote address", func(t *testing.T) {
		var got string
		app := fiber.New()
		app.Get("/test", func(c *fiber.Ctx) error {
			got = clientIdentity(c)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		resp.Body.Close()

		if len(got) <= len("ip:") || got[:3] != "ip:" {
			t.Errorf("clientIdentity() = %q, want an ip-keyed identity", got)
		}
	})
}

func TestRateLimitHandler_PassesThroughWhenDisabled(t *testing.T) {
	tests := []struct {
		name    string
		limiter func() *ratelimit.Limiter
	}{
		{
			name:    "no limiter source",
			limiter: nil,
		},
		{
			name:    "limiter not started yet",
			limiter: func() *ratelimit.Limiter { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(rateLimitHandler(tt.limiter, "api", RouteLimit{Limit: 1, Window: time.Minute}))
			app.Get("/test", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestNewModule_DefaultListenAddr(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", "")

	m := NewModule(nil, nil, DefaultRouteLimits())
	if m.listenAddr != ":3000" {
		t.Errorf("listenAddr = %q, want %q", m.listenAddr, ":3000")
	}
}
