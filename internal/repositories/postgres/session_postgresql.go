package postgres

import (
	"context"
	"time"

	"github.com/edforge/test-session-service/internal/models"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) *SessionPostgreSQL {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetActiveByUserAndTest(ctx context.Context, userID string, testID uint) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.SessionActive).
		Order("started_at DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

// AdvanceProgress moves the question pointer forward. The guard on the
// stored index keeps the pointer non-decreasing even under a lost race.
func (s *SessionPostgreSQL) AdvanceProgress(ctx context.Context, id string, index int, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("id = ? AND status = ? AND current_question_index < ?", id, models.SessionActive, index).
		Updates(map[string]interface{}{
			"current_question_index": index,
			"last_activity_at":       at,
		}).Error
}

func (s *SessionPostgreSQL) Complete(ctx context.Context, id string, completedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("id = ? AND status = ?", id, models.SessionActive).
		Updates(map[string]interface{}{
			"status":           models.SessionCompleted,
			"completed_at":     completedAt,
			"last_activity_at": completedAt,
		}).Error
}

// MarkAbandonedBefore expires active sessions idle since before cutoff
// and reports how many were swept.
func (s *SessionPostgreSQL) MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("status = ? AND last_activity_at < ?", models.SessionActive, cutoff).
		Update("status", models.SessionAbandoned)
	return result.RowsAffected, result.Error
}
