package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/edforge/test-session-service/internal/grading"
	"github.com/edforge/test-session-service/internal/models"
)

type evaluationService struct {
	client grading.Client
	logger *slog.Logger
}

func NewEvaluationService(client grading.Client, logger *slog.Logger) EvaluationService {
	return &evaluationService{
		client: client,
		logger: logger,
	}
}

// Evaluate validates the payload shape locally, then delegates grading
// to the remote collaborator. No grading logic lives here; the result
// is normalized into an unsaved Submission. Stateless and safe to
// retry while no feedback has been recorded for the question.
func (s *evaluationService) Evaluate(ctx context.Context, session *models.TestSession, question *models.TestQuestion, payload json.RawMessage) (*models.Submission, error) {
	normalized, err := CollectAnswer(question, payload)
	if err != nil {
		return nil, err
	}

	result, err := s.client.Grade(ctx, &grading.GradeRequest{
		SessionID:  session.ID,
		QuestionID: question.ID,
		Kind:       question.Kind,
		Payload:    normalized,
	})
	if err != nil {
		s.logger.Error("Remote grading failed",
			"session_id", session.ID,
			"question_id", question.ID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}

	return &models.Submission{
		SessionID:  session.ID,
		QuestionID: question.ID,
		Payload:    []byte(normalized),
		IsCorrect:  result.IsCorrect,
		Feedback:   result.Feedback,
		GradedAt:   time.Now(),
	}, nil
}
