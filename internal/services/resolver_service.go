package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edforge/test-session-service/internal/events"
	"github.com/edforge/test-session-service/internal/models"
	"github.com/edforge/test-session-service/internal/repositories"
	"github.com/edforge/test-session-service/internal/utils"
)

type resolverService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewResolverService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) ResolverService {
	return &resolverService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Resolve finds or creates the one session the user should drive for a
// topic. The first test in the remote ordering wins; no re-sorting. A
// single attempt is made per call - retry policy belongs to the user.
func (s *resolverService) Resolve(ctx context.Context, topicID uint, userID string) (*ResolveResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	s.logger.Info("Resolving test session",
		"topic_id", topicID,
		"user_id", userID)

	if err := s.validator.Validate(&ResolveRequest{TopicID: topicID}); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tests, err := s.repo.Test().GetByTopic(ctx, topicID)
	if err != nil {
		s.logger.Error("Failed to list tests for topic", "topic_id", topicID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	if len(tests) == 0 {
		return nil, ErrNoTestAvailable
	}

	// Position in the returned sequence is the tie-break.
	test := tests[0]

	return s.resumeOrCreate(ctx, test.ID, topicID, userID)
}

// CreateForTest starts (or resumes) a session for an explicitly chosen
// test, bypassing topic resolution.
func (s *resolverService) CreateForTest(ctx context.Context, testID uint, userID string) (*ResolveResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoTestAvailable
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	return s.resumeOrCreate(ctx, test.ID, test.TopicID, userID)
}

func (s *resolverService) resumeOrCreate(ctx context.Context, testID, topicID uint, userID string) (*ResolveResponse, error) {
	// Resume an active session when one exists; the remote contract
	// enforces at most one active session per (user, test).
	existing, err := s.repo.Session().GetActiveByUserAndTest(ctx, userID, testID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	if existing != nil && err == nil {
		s.logger.Info("Resuming existing session",
			"session_id", existing.ID,
			"test_id", testID,
			"user_id", userID)
		return &ResolveResponse{
			SessionID: existing.ID,
			TestID:    testID,
			Resumed:   true,
		}, nil
	}

	now := time.Now()
	session := &models.TestSession{
		TestID:         testID,
		UserID:         userID,
		Status:         models.SessionActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session",
			"test_id", testID,
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	s.logger.Info("Test session created",
		"session_id", session.ID,
		"test_id", testID,
		"user_id", userID)

	if err := s.publisher.PublishSessionEvent(ctx,
		events.NewSessionStartedEvent(session.ID, testID, topicID, userID, now)); err != nil {
		s.logger.Error("Failed to publish session started event",
			"session_id", session.ID, "error", err)
	}

	return &ResolveResponse{
		SessionID: session.ID,
		TestID:    testID,
		Resumed:   false,
	}, nil
}

// ListTests returns the topic's tests in the stored order.
func (s *resolverService) ListTests(ctx context.Context, topicID uint) ([]*models.Test, error) {
	tests, err := s.repo.Test().GetByTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}
