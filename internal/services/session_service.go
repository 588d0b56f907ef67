package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edforge/test-session-service/internal/cache"
	"github.com/edforge/test-session-service/internal/events"
	"github.com/edforge/test-session-service/internal/models"
	"github.com/edforge/test-session-service/internal/repositories"
)

const sessionViewTTL = 30 * time.Second

type sessionService struct {
	repo        repositories.Repository
	evaluator   EvaluationService
	publisher   events.EventPublisher
	cache       cache.CacheService
	logger      *slog.Logger
	idleTimeout time.Duration

	// Single-slot in-flight guard: at most one outstanding submission
	// per session. This is the system's one concurrency control point.
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewSessionService(
	repo repositories.Repository,
	evaluator EvaluationService,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger *slog.Logger,
	idleTimeout time.Duration,
) SessionService {
	return &sessionService{
		repo:        repo,
		evaluator:   evaluator,
		publisher:   publisher,
		cache:       cacheService,
		logger:      logger,
		idleTimeout: idleTimeout,
		inflight:    make(map[string]struct{}),
	}
}

// Start loads the authoritative session state, replays feedback for
// every answered question, and materializes the current question.
// Client memory is never trusted on resume; this re-fetch reconciles
// any state abandoned mid-submission.
func (s *sessionService) Start(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	if s.cache != nil {
		var cached SessionView
		if err := s.cache.Get(ctx, viewCacheKey(sessionID, userID), &cached); err == nil {
			return &cached, nil
		}
	}

	session, err := s.getOwnedSession(ctx, sessionID, userID, "start")
	if err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByIDWithQuestions(ctx, session.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	submissions, err := s.repo.Submission().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	byQuestion := make(map[uint]*models.Submission, len(submissions))
	for _, sub := range submissions {
		byQuestion[sub.QuestionID] = sub
	}

	view := &SessionView{
		SessionID:            session.ID,
		TestID:               test.ID,
		TestTitle:            test.Title,
		Status:               session.Status,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		TotalQuestions:       len(test.Questions),
		Answered:             make([]QuestionView, 0, len(submissions)),
	}

	// Replay recorded feedback in question order: answered questions
	// are delivered read-only and are never re-graded.
	for _, question := range test.Questions {
		if prior, ok := byQuestion[question.ID]; ok {
			view.Answered = append(view.Answered, *BuildQuestionView(&question, prior))
		}
	}

	switch session.Status {
	case models.SessionActive:
		if session.CurrentQuestionIndex >= len(test.Questions) {
			return nil, fmt.Errorf("session %s index %d out of range for test %d",
				session.ID, session.CurrentQuestionIndex, test.ID)
		}
		current := test.Questions[session.CurrentQuestionIndex]
		view.Current = BuildQuestionView(&current, byQuestion[current.ID])

	case models.SessionCompleted:
		view.Summary = s.buildSummary(session, len(test.Questions), submissions)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, viewCacheKey(sessionID, userID), view, sessionViewTTL); err != nil {
			s.logger.Warn("Failed to cache session view", "session_id", sessionID, "error", err)
		}
	}

	return view, nil
}

// Submit grades the answer for the session's current question. A
// second call while one is in flight fails with ErrDuplicateSubmission
// before any remote call. Answered questions are idempotent: their
// recorded feedback is returned without re-grading.
func (s *sessionService) Submit(ctx context.Context, sessionID string, questionID uint, payload json.RawMessage, userID string) (*SubmitResult, error) {
	if !s.acquire(sessionID) {
		return nil, ErrDuplicateSubmission
	}
	defer s.release(sessionID)

	session, err := s.getOwnedSession(ctx, sessionID, userID, "submit")
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case models.SessionCompleted:
		return nil, ErrSessionCompleted
	case models.SessionAbandoned:
		return nil, ErrSessionNotActive
	}

	test, err := s.repo.Test().GetByIDWithQuestions(ctx, session.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if session.CurrentQuestionIndex >= len(test.Questions) {
		return nil, fmt.Errorf("session %s index %d out of range for test %d",
			session.ID, session.CurrentQuestionIndex, test.ID)
	}

	current := test.Questions[session.CurrentQuestionIndex]
	if current.ID != questionID {
		return s.handleNonCurrentSubmit(ctx, session, test, questionID)
	}

	submission, err := s.evaluator.Evaluate(ctx, session, &current, payload)
	if err != nil {
		// Recoverable: the question stays submittable.
		return nil, err
	}

	// The grading result is authoritative once issued; record it even
	// if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	lastIndex := session.CurrentQuestionIndex == len(test.Questions)-1
	now := time.Now()

	err = s.repo.WithTransaction(recordCtx, func(txRepo repositories.Repository) error {
		if err := txRepo.Submission().Create(recordCtx, submission); err != nil {
			return fmt.Errorf("failed to record submission: %w", err)
		}
		if lastIndex {
			return txRepo.Session().Complete(recordCtx, session.ID, now)
		}
		return txRepo.Session().AdvanceProgress(recordCtx, session.ID, session.CurrentQuestionIndex+1, now)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateView(recordCtx, session.ID)

	s.logger.Info("Submission recorded",
		"session_id", session.ID,
		"question_id", questionID,
		"is_correct", submission.IsCorrect,
		"completed", lastIndex)

	result := &SubmitResult{
		Feedback: FeedbackView{
			IsCorrect: submission.IsCorrect,
			Feedback:  submission.Feedback,
			GradedAt:  submission.GradedAt,
		},
		Completed: lastIndex,
	}

	if lastIndex {
		submissions, err := s.repo.Submission().GetBySession(recordCtx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get submissions: %w", err)
		}
		session.CompletedAt = &now
		result.Summary = s.buildSummary(session, len(test.Questions), submissions)

		if err := s.publisher.PublishSessionEvent(recordCtx,
			events.NewSessionCompletedEvent(session.ID, test.ID, session.UserID,
				result.Summary.TotalQuestions, result.Summary.CorrectCount, now)); err != nil {
			s.logger.Error("Failed to publish session completed event",
				"session_id", session.ID, "error", err)
		}
	} else {
		next := test.Questions[session.CurrentQuestionIndex+1]
		result.Next = BuildQuestionView(&next, nil)
	}

	return result, nil
}

// SweepAbandoned expires active sessions idle beyond the configured
// timeout and reports how many were swept.
func (s *sessionService) SweepAbandoned(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.idleTimeout)
	swept, err := s.repo.Session().MarkAbandonedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep abandoned sessions: %w", err)
	}

	if swept > 0 {
		s.logger.Info("Swept abandoned sessions", "count", swept, "cutoff", cutoff)
		if err := s.publisher.PublishSessionEvent(ctx,
			events.NewSessionAbandonedEvent(swept, s.idleTimeout.String(), time.Now())); err != nil {
			s.logger.Error("Failed to publish abandoned sessions event", "error", err)
		}
	}

	return swept, nil
}

// ===== HELPERS =====

func (s *sessionService) getOwnedSession(ctx context.Context, sessionID, userID, action string) (*models.TestSession, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, NewPermissionError(userID, sessionID, action, "not owned by user")
	}
	return session, nil
}

// handleNonCurrentSubmit resolves a submit addressed at a question
// that is not the live one: answered questions replay their recorded
// feedback with no remote call, anything else is rejected.
func (s *sessionService) handleNonCurrentSubmit(ctx context.Context, session *models.TestSession, test *models.Test, questionID uint) (*SubmitResult, error) {
	var target *models.TestQuestion
	for i := range test.Questions {
		if test.Questions[i].ID == questionID {
			target = &test.Questions[i]
			break
		}
	}
	if target == nil {
		return nil, ErrQuestionNotFound
	}

	recorded, err := s.repo.Submission().GetBySessionAndQuestion(ctx, session.ID, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotCurrent
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	current := test.Questions[session.CurrentQuestionIndex]
	return &SubmitResult{
		Feedback: FeedbackView{
			IsCorrect: recorded.IsCorrect,
			Feedback:  recorded.Feedback,
			GradedAt:  recorded.GradedAt,
		},
		Next: BuildQuestionView(&current, nil),
	}, nil
}

func (s *sessionService) buildSummary(session *models.TestSession, totalQuestions int, submissions []*models.Submission) *SessionSummary {
	correct := 0
	for _, sub := range submissions {
		if sub.IsCorrect {
			correct++
		}
	}

	completedAt := time.Now()
	if session.CompletedAt != nil {
		completedAt = *session.CompletedAt
	}

	return &SessionSummary{
		SessionID:      session.ID,
		TestID:         session.TestID,
		TotalQuestions: totalQuestions,
		CorrectCount:   correct,
		CompletedAt:    completedAt,
	}
}

func (s *sessionService) invalidateView(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "session_view:"+sessionID+":*"); err != nil {
		s.logger.Warn("Failed to invalidate session view cache",
			"session_id", sessionID, "error", err)
	}
}

func (s *sessionService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.inflight[sessionID]; taken {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *sessionService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

func viewCacheKey(sessionID, userID string) string {
	return "session_view:" + sessionID + ":" + userID
}
