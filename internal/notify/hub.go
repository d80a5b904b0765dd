// internal/notify/hub.go

// Package notify fans out back-office notifications ("New Book Added!",
// "New Purchase added!", ...) to connected dashboards and optional sinks.
// Delivery is best effort: nothing here ever fails the operation that
// published the notification.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notification is a single back-office event.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// New stamps a notification with the current time.
func New(title, message string) Notification {
	return Notification{Title: title, Message: message, Time: time.Now()}
}

// Publisher is what services depend on to emit notifications.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}

// Sink receives every notification in addition to the live subscribers.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// Hub delivers notifications to in-process subscribers. A subscriber whose
// buffer is full misses the notification instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Notification]struct{}
	sinks  []Sink
	buffer int
	logger *slog.Logger

	sinkTimeout time.Duration
	wg          sync.WaitGroup
}

// NewHub creates a hub whose subscribers buffer up to buffer notifications.
func NewHub(buffer int, logger *slog.Logger, sinks ...Sink) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:        make(map[chan Notification]struct{}),
		sinks:       sinks,
		buffer:      buffer,
		logger:      logger,
		sinkTimeout: 5 * time.Second,
	}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release it; it closes the channel.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Debug("notification dropped for slow subscriber", "title", n.Title)
		}
	}
	h.mu.RUnlock()

	for _, sink := range h.sinks {
		h.wg.Add(1)
		go func(sink Sink) {
			defer h.wg.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.sinkTimeout)
			defer cancel()
			if err := sink.Send(sctx, n); err != nil {
				h.logger.Warn("notification sink failed", "title", n.Title, "error", err)
			}
		}(sink)
	}
}

// Wait blocks until in-flight sink deliveries finish.
func (h *Hub) Wait() {
	h.wg.Wait()
}
