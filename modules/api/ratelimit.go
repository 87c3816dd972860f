package api

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/middleware/ratelimit"
)

// RouteLimit is a per-client request budget enforced at the HTTP boundary.
type RouteLimit struct {
	Limit  int
	Window time.Duration
}

// RouteLimits maps route names to their budgets. Routes without an entry
// fall back to Default.
type RouteLimits struct {
	Default RouteLimit
	Routes  map[string]RouteLimit
}

// DefaultRouteLimits returns the standard API budgets. Listing is the most
// expensive operation so it gets the tightest one.
func DefaultRouteLimits() RouteLimits {
	return RouteLimits{
		Default: RouteLimit{Limit: 100, Window: time.Minute},
		Routes: map[string]RouteLimit{
			"list-contacts": {Limit: 10, Window: time.Minute},
		},
	}
}

func (rl RouteLimits) limitFor(name string) RouteLimit {
	if budget, ok := rl.Routes[name]; ok {
		return budget
	}
	return rl.Default
}

// rateLimitHandler enforces a per-client budget on the routes it guards.
// The service bus carries no caller identity for in-process requests, so
// HTTP traffic is attributed here instead: by user ID once authenticated,
// by remote address otherwise. Checks fail open when Redis is unavailable.
func rateLimitHandler(limiter func() *ratelimit.Limiter, name string, budget RouteLimit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		l := limiter()
		if l == nil {
			return c.Next()
		}

		key := fmt.Sprintf("%s:%s", name, clientIdentity(c))
		result, err := l.Allow(c.UserContext(), key, budget.Limit, budget.Window)
		if err != nil {
			log.Printf("[api] Rate limit check failed: %v", err)
			return c.Next()
		}

		if !result.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many requests, slow down",
			})
		}

		return c.Next()
	}
}

// clientIdentity keys rate limit buckets by the authenticated user when
// available, falling back to the remote address for public routes.
func clientIdentity(c *fiber.Ctx) string {
	if claims, ok := c.Locals(UserContextKey).(*domain.Claims); ok && claims != nil {
		return "user:" + claims.UserID
	}
	return "ip:" + c.IP()
}
