package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the session lifecycle events this service emits
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionCompleted EventType = "session.completed"
	EventSessionAbandoned EventType = "session.abandoned"

	EventConnectionStatusChanged EventType = "connection.status_changed"
)

// SessionEvent is the base event structure for all published events
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	TestID    uint      `json:"test_id"`
	TopicID   uint      `json:"topic_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

type SessionCompletedEvent struct {
	SessionID      string    `json:"session_id"`
	TestID         uint      `json:"test_id"`
	UserID         string    `json:"user_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

type SessionAbandonedEvent struct {
	SweptCount  int64     `json:"swept_count"`
	IdleTimeout string    `json:"idle_timeout"`
	SweptAt     time.Time `json:"swept_at"`
}

type ConnectionStatusChangedEvent struct {
	UserID    string    `json:"user_id,omitempty"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	ChangedAt time.Time `json:"changed_at"`
}

// Event factory functions

func NewSessionStartedEvent(sessionID string, testID, topicID uint, userID string, startedAt time.Time) *SessionEvent {
	return newEvent(EventSessionStarted, SessionStartedEvent{
		SessionID: sessionID,
		TestID:    testID,
		TopicID:   topicID,
		UserID:    userID,
		StartedAt: startedAt,
	})
}

func NewSessionCompletedEvent(sessionID string, testID uint, userID string, totalQuestions, correctCount int, completedAt time.Time) *SessionEvent {
	return newEvent(EventSessionCompleted, SessionCompletedEvent{
		SessionID:      sessionID,
		TestID:         testID,
		UserID:         userID,
		TotalQuestions: totalQuestions,
		CorrectCount:   correctCount,
		CompletedAt:    completedAt,
	})
}

func NewSessionAbandonedEvent(sweptCount int64, idleTimeout string, sweptAt time.Time) *SessionEvent {
	return newEvent(EventSessionAbandoned, SessionAbandonedEvent{
		SweptCount:  sweptCount,
		IdleTimeout: idleTimeout,
		SweptAt:     sweptAt,
	})
}

func NewConnectionStatusChangedEvent(userID, previous, current string, changedAt time.Time) *SessionEvent {
	return newEvent(EventConnectionStatusChanged, ConnectionStatusChangedEvent{
		UserID:    userID,
		Previous:  previous,
		Current:   current,
		ChangedAt: changedAt,
	})
}

func newEvent(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "test-session-service",
		Version:   "1.0",
		Data:      data,
	}
}
