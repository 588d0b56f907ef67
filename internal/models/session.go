package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// TestSession is one user's pass through one test. The id is opaque
// and server-assigned; clients never construct it.
type TestSession struct {
	ID     string        `json:"id" gorm:"primaryKey;size:36"`
	TestID uint          `json:"test_id" gorm:"not null;index"`
	UserID string        `json:"user_id" gorm:"not null;size:100;index"`
	Status SessionStatus `json:"status" gorm:"not null;size:16;default:active;index" validate:"omitempty,session_status"`

	// CurrentQuestionIndex only ever moves forward, one step per
	// accepted submission.
	CurrentQuestionIndex int `json:"current_question_index" gorm:"not null;default:0"`

	StartedAt      time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test        Test         `json:"-" gorm:"foreignKey:TestID"`
	Submissions []Submission `json:"-" gorm:"foreignKey:SessionID"`
}

func (TestSession) TableName() string { return "test_sessions" }

func (s *TestSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *TestSession) IsActive() bool {
	return s.Status == SessionActive
}
