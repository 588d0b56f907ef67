package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/edforge/test-session-service/internal/models"
	"gorm.io/gorm"
)

// TestRepository exposes read access to tests and their questions.
// Topic listings are returned in the stored order; this layer never
// re-sorts on behalf of callers.
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Test, error)
	GetByTopic(ctx context.Context, topicID uint) ([]*models.Test, error)
	GetQuestion(ctx context.Context, id uint) (*models.TestQuestion, error)
}

// SessionRepository manages test session lifecycle records.
type SessionRepository interface {
	Create(ctx context.Context, session *models.TestSession) error
	GetByID(ctx context.Context, id string) (*models.TestSession, error)
	GetActiveByUserAndTest(ctx context.Context, userID string, testID uint) (*models.TestSession, error)
	Update(ctx context.Context, session *models.TestSession) error
	AdvanceProgress(ctx context.Context, id string, index int, at time.Time) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
	MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubmissionRepository stores graded answers, one per (session, question).
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetBySession(ctx context.Context, sessionID string) ([]*models.Submission, error)
	GetBySessionAndQuestion(ctx context.Context, sessionID string, questionID uint) (*models.Submission, error)
	HasSubmission(ctx context.Context, sessionID string, questionID uint) (bool, error)
	CountCorrect(ctx context.Context, sessionID string) (int64, error)
}

// Repository aggregates all repositories behind one handle.
type Repository interface {
	Test() TestRepository
	Session() SessionRepository
	Submission() SubmissionRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError checks if error represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
