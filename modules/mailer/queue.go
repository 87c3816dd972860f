package mailer

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Message is a queued outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// QueueConfig holds delivery queue configuration.
type QueueConfig struct {
	QueueSize      int
	NumWorkers     int
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
}

// DefaultQueueConfig returns the default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		QueueSize:      100,
		NumWorkers:     2,
		MaxRetries:     3,
		BaseRetryDelay: time.Second,
		MaxRetryDelay:  30 * time.Second,
	}
}

// Queue delivers emails asynchronously through a pool of workers. A message
// that still fails after the retry budget is dropped and logged; delivery is
// best effort and the user can always request a new confirmation email.
type Queue struct {
	config QueueConfig
	sender Sender
	jobs   chan Message
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.RWMutex
	running bool
}

// NewQueue creates a new delivery queue.
func NewQueue(cfg QueueConfig, sender Sender) *Queue {
	return &Queue{
		config: cfg,
		sender: sender,
		jobs:   make(chan Message, cfg.QueueSize),
	}
}

// Start launches the delivery workers.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("queue is already running")
	}
	q.running = true
	q.mu.Unlock()

	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.NumWorkers; i++ {
		workerID := i + 1
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.run(workerCtx, workerID)
		}()
	}

	log.Printf("[mailer] Delivery queue started with %d workers", q.config.NumWorkers)
	return nil
}

// Stop drains in-flight deliveries and shuts the workers down.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.mu.Unlock()

	close(q.jobs)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if q.cancel != nil {
			q.cancel()
		}
		<-done
	}

	log.Println("[mailer] Delivery queue stopped")
	return nil
}

// Enqueue adds a message to the queue. It fails when the queue is full or
// already stopped rather than blocking the caller.
func (q *Queue) Enqueue(msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running {
		return fmt.Errorf("delivery queue is not running")
	}

	select {
	case q.jobs <- msg:
		return nil
	default:
		return fmt.Errorf("delivery queue is full")
	}
}

func (q *Queue) run(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-q.jobs:
			if !ok {
				return
			}
			q.deliver(ctx, workerID, msg)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, workerID int, msg Message) {
	var lastErr error
	for attempt := 1; attempt <= q.config.MaxRetries; attempt++ {
		if err := q.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
			lastErr = err
			log.Printf("[mailer] worker-%d: attempt %d/%d failed for %s: %v",
				workerID, attempt, q.config.MaxRetries, msg.To, err)

			if attempt == q.config.MaxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(q.retryDelay(attempt)):
			}
			continue
		}

		log.Printf("[mailer] worker-%d: delivered %q to %s", workerID, msg.Subject, msg.To)
		return
	}

	log.Printf("[mailer] worker-%d: giving up on %s after %d attempts: %v",
		workerID, msg.To, q.config.MaxRetries, lastErr)
}

// retryDelay computes the exponential backoff delay for the given attempt.
func (q *Queue) retryDelay(attempt int) time.Duration {
	delay := time.Duration(float64(q.config.BaseRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay > q.config.MaxRetryDelay {
		delay = q.config.MaxRetryDelay
	}
	return delay
}
