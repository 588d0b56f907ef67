package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edforge/test-session-service/internal/grading"
	"github.com/edforge/test-session-service/internal/models"
	"github.com/edforge/test-session-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTestRepository is a mock implementation of TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) GetByTopic(ctx context.Context, topicID uint) ([]*models.Test, error) {
	args := m.Called(ctx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Test), args.Error(1)
}

func (m *MockTestRepository) GetQuestion(ctx context.Context, id uint) (*models.TestQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestQuestion), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.TestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) GetActiveByUserAndTest(ctx context.Context, userID string, testID uint) (*models.TestSession, error) {
	args := m.Called(ctx, userID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.TestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) AdvanceProgress(ctx context.Context, id string, index int, at time.Time) error {
	args := m.Called(ctx, id, index, at)
	return args.Error(0)
}

func (m *MockSessionRepository) Complete(ctx context.Context, id string, completedAt time.Time) error {
	args := m.Called(ctx, id, completedAt)
	return args.Error(0)
}

func (m *MockSessionRepository) MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockSubmissionRepository is a mock implementation of SubmissionRepository
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.Submission, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) GetBySessionAndQuestion(ctx context.Context, sessionID string, questionID uint) (*models.Submission, error) {
	args := m.Called(ctx, sessionID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) HasSubmission(ctx context.Context, sessionID string, questionID uint) (bool, error) {
	args := m.Called(ctx, sessionID, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubmissionRepository) CountCorrect(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRepository aggregates the repository mocks. WithTransaction runs
// fn against the same mocks, which is enough for service-level tests.
type MockRepository struct {
	TestRepo       *MockTestRepository
	SessionRepo    *MockSessionRepository
	SubmissionRepo *MockSubmissionRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		TestRepo:       new(MockTestRepository),
		SessionRepo:    new(MockSessionRepository),
		SubmissionRepo: new(MockSubmissionRepository),
	}
}

func (m *MockRepository) Test() repositories.TestRepository             { return m.TestRepo }
func (m *MockRepository) Session() repositories.SessionRepository       { return m.SessionRepo }
func (m *MockRepository) Submission() repositories.SubmissionRepository { return m.SubmissionRepo }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

// MockGradingClient is a mock implementation of grading.Client
type MockGradingClient struct {
	mock.Mock
}

func (m *MockGradingClient) Grade(ctx context.Context, req *grading.GradeRequest) (*grading.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*grading.Result), args.Error(1)
}
