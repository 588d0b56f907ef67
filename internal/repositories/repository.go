package repositories

import (
	"context"

	"github.com/edforge/test-session-service/internal/repositories/postgres"
	"gorm.io/gorm"
)

type gormRepository struct {
	db         *gorm.DB
	test       TestRepository
	session    SessionRepository
	submission SubmissionRepository
}

// NewRepository creates the Postgres-backed repository aggregate.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{
		db:         db,
		test:       postgres.NewTestPostgreSQL(db),
		session:    postgres.NewSessionPostgreSQL(db),
		submission: postgres.NewSubmissionPostgreSQL(db),
	}
}

func (r *gormRepository) Test() TestRepository             { return r.test }
func (r *gormRepository) Session() SessionRepository       { return r.session }
func (r *gormRepository) Submission() SubmissionRepository { return r.submission }

// WithTransaction runs fn against a repository bound to a single
// transaction; rollback on error, commit otherwise.
func (r *gormRepository) WithTransaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *gormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *gormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
