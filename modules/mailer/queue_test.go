package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSender records deliveries and can fail a configured number of times
// per recipient.
type fakeSender struct {
	mu        sync.Mutex
	failures  map[string]int
	delivered []Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{failures: make(map[string]int)}
}

func (f *fakeSender) failTimes(to string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[to] = n
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures[to] > 0 {
		f.failures[to]--
		return errors.New("smtp unavailable")
	}

	f.delivered = append(f.delivered, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) deliveredTo(to string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, m := range f.delivered {
		if m.To == to {
			count++
		}
	}
	return count
}

func testQueueConfig() QueueConfig {
	return QueueConfig{
		QueueSize:      10,
		NumWorkers:     2,
		MaxRetries:     3,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestQueue_Delivers(t *testing.T) {
	sender := newFakeSender()
	queue := NewQueue(testQueueConfig(), sender)

	if err := queue.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer queue.Stop(context.Background())

	err := queue.Enqueue(Message{To: "user@example.com", Subject: "Hello", Body: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, func() bool { return sender.deliveredTo("user@example.com") == 1 })
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	sender := newFakeSender()
	sender.failTimes("flaky@example.com", 2)
	queue := NewQueue(testQueueConfig(), sender)

	if err := queue.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer queue.Stop(context.Background())

	if err := queue.Enqueue(Message{To: "flaky@example.com", Subject: "Retry"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, func() bool { return sender.deliveredTo("flaky@example.com") == 1 })
}

func TestQueue_DropsAfterRetryBudget(t *testing.T) {
	sender := newFakeSender()
	sender.failTimes("down@example.com", 10)
	queue := NewQueue(testQueueConfig(), sender)

	if err := queue.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := queue.Enqueue(Message{To: "down@example.com", Subject: "Doomed"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// Stop drains the queue, so all attempts happened by the time it returns.
	if err := queue.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := sender.deliveredTo("down@example.com"); got != 0 {
		t.Errorf("expected 0 deliveries, got %d", got)
	}
}

func TestQueue_EnqueueAfterStop(t *testing.T) {
	queue := NewQueue(testQueueConfig(), newFakeSender())

	if err := queue.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := queue.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := queue.Enqueue(Message{To: "late@example.com"}); err == nil {
		t.Error("expected error enqueueing after stop")
	}
}

func TestRenderConfirmationEmail(t *testing.T) {
	body, err := RenderConfirmationEmail("alice", "http://localhost:3000/api/v1/auth/confirmed_email/tok123")
	if err != nil {
		t.Fatalf("RenderConfirmationEmail() error = %v", err)
	}

	if !strings.Contains(body, "alice") {
		t.Error("expected body to contain the username")
	}
	if !strings.Contains(body, "confirmed_email/tok123") {
		t.Error("expected body to contain the confirmation link")
	}
}

func TestQueue_RetryDelayBackoff(t *testing.T) {
	queue := NewQueue(QueueConfig{
		BaseRetryDelay: time.Second,
		MaxRetryDelay:  5 * time.Second,
	}, newFakeSender())

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := queue.retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
