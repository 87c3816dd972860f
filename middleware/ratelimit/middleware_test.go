package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{
			name: "default options",
			opts: nil,
		},
		{
			name: "with custom options",
			opts: []Option{
				WithRedisAddr("redis:6379"),
				WithDefaultLimit(50, 30*time.Second),
				WithServiceLimit("list-contacts", 10, time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.opts...)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if m == nil {
				t.Fatal("New() returned nil middleware")
			}
		})
	}
}

func TestMiddleware_Name(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if name := m.Name(); name != "rate-limit" {
		t.Errorf("Name() = %q, want 'rate-limit'", name)
	}
}

func TestMiddleware_LimitForService(t *testing.T) {
	m, err := New(
		WithDefaultLimit(100, time.Minute),
		WithServiceLimit("list-contacts", 10, time.Minute),
		WithServiceLimit("search-contacts", 30, 30*time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name        string
		serviceName string
		wantLimit   int
		wantWindow  time.Duration
	}{
		{
			name:        "service with custom limit",
			serviceName: "list-contacts",
			wantLimit:   10,
			wantWindow:  time.Minute,
		},
		{
			name:        "another service with custom limit",
			serviceName: "search-contacts",
			wantLimit:   30,
			wantWindow:  30 * time.Second,
		},
		{
			name:        "service without custom limit gets default",
			serviceName: "create-contact",
			wantLimit:   100,
			wantWindow:  time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, window := m.LimitForService(tt.serviceName)
			if limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
			}
			if window != tt.wantWindow {
				t.Errorf("window = %v, want %v", window, tt.wantWindow)
			}
		})
	}
}

func TestMiddleware_extractClientID(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	longID := make([]byte, 200)
	for i := range longID {
		longID[i] = 'a'
	}

	tests := []struct {
		name string
		msg  *types.Msg
		want string
	}{
		{
			name: "client ID present",
			msg: &types.Msg{
				Header: map[string][]string{"X-Client-ID": {"client-42"}},
			},
			want: "client-42",
		},
		{
			name: "no header map",
			msg:  &types.Msg{},
			want: "anonymous",
		},
		{
			name: "header present but empty value",
			msg: &types.Msg{
				Header: map[string][]string{"X-Client-ID": {""}},
			},
			want: "anonymous",
		},
		{
			name: "excessively long ID is truncated",
			msg: &types.Msg{
				Header: map[string][]string{"X-Client-ID": {string(longID)}},
			},
			want: string(longID[:maxClientIDLength]),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.extractClientID(tt.msg); got != tt.want {
				t.Errorf("extractClientID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_Limiter_NilBeforeStart(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if m.Limiter() != nil {
		t.Error("expected Limiter() to return nil before Start")
	}
}

func TestMiddleware_OnServiceRegistration_SkipsNonRequestReply(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reg := types.ServiceRegistration{
		Name: "some-stream",
		Type: types.ServiceTypeStreamConsumer,
	}

	wrapped := m.OnServiceRegistration(context.Background(), reg)
	if wrapped.RequestHandler != nil {
		t.Error("expected non request-reply registration to pass through unwrapped")
	}
}
