package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edforge/test-session-service/internal/events"
)

// Status is the transport connection state as observed by this service.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// IsConnected reports whether the transport is currently usable.
func (s Status) IsConnected() bool {
	return s == StatusConnected
}

// Transition is delivered to every subscriber on a status change.
type Transition struct {
	Previous Status    `json:"previous"`
	Current  Status    `json:"current"`
	At       time.Time `json:"at"`
}

const presenceKeyPrefix = "presence:"

// Monitor tracks transport status and user presence. It is advisory
// only: no session operation consults it.
type Monitor struct {
	client        *redis.Client
	publisher     events.EventPublisher
	logger        *slog.Logger
	heartbeatTTL  time.Duration
	probeInterval time.Duration

	mu          sync.Mutex
	status      Status
	subscribers map[int]chan Transition
	nextSubID   int
	closed      bool
	done        chan struct{}
}

func NewMonitor(client *redis.Client, publisher events.EventPublisher, logger *slog.Logger, heartbeatTTL, probeInterval time.Duration) *Monitor {
	return &Monitor{
		client:        client,
		publisher:     publisher,
		logger:        logger,
		heartbeatTTL:  heartbeatTTL,
		probeInterval: probeInterval,
		status:        StatusConnecting,
		subscribers:   make(map[int]chan Transition),
		done:          make(chan struct{}),
	}
}

// Status returns the current transport status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers an observer for status transitions. The returned
// cancel func must be called to release the subscription. Slow
// subscribers miss transitions rather than blocking the monitor.
func (m *Monitor) Subscribe() (<-chan Transition, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Transition, 8)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Heartbeat records user presence with a TTL and confirms the
// transport is reachable.
func (m *Monitor) Heartbeat(ctx context.Context, userID string) error {
	if err := m.client.Set(ctx, presenceKeyPrefix+userID, time.Now().Unix(), m.heartbeatTTL).Err(); err != nil {
		m.transition(ctx, StatusDisconnected)
		return err
	}
	m.transition(ctx, StatusConnected)
	return nil
}

// IsOnline reports whether the user has a live heartbeat.
func (m *Monitor) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := m.client.Exists(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkDisconnected degrades the status; a reconnect probe will restore
// it when the transport answers again.
func (m *Monitor) MarkDisconnected(ctx context.Context) {
	m.transition(ctx, StatusDisconnected)
}

// MarkError latches the error state. Only Close leaves it.
func (m *Monitor) MarkError(ctx context.Context) {
	m.transition(ctx, StatusError)
}

// Run probes the transport at a fixed interval until the context is
// cancelled or the monitor is closed. A probe succeeding after a
// disconnect restores connected.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	if err := m.client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("Transport probe failed", "error", err)
		m.transition(ctx, StatusDisconnected)
		return
	}
	m.transition(ctx, StatusConnected)
}

// Close tears the monitor down: subscribers are closed and no further
// transitions are delivered.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	for id, sub := range m.subscribers {
		delete(m.subscribers, id)
		close(sub)
	}
	m.status = StatusDisconnected
	return nil
}

func (m *Monitor) transition(ctx context.Context, next Status) {
	m.mu.Lock()
	if m.closed || m.status == next {
		m.mu.Unlock()
		return
	}
	// error latches until teardown
	if m.status == StatusError {
		m.mu.Unlock()
		return
	}

	prev := m.status
	m.status = next
	t := Transition{Previous: prev, Current: next, At: time.Now()}
	for _, sub := range m.subscribers {
		select {
		case sub <- t:
		default:
		}
	}
	m.mu.Unlock()

	m.logger.Info("Transport status changed", "previous", prev, "current", next)

	if m.publisher != nil {
		if err := m.publisher.PublishSessionEvent(ctx,
			events.NewConnectionStatusChangedEvent("", string(prev), string(next), t.At)); err != nil {
			m.logger.Error("Failed to publish status change event", "error", err)
		}
	}
}
