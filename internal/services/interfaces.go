package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edforge/test-session-service/internal/models"
)

// ===== SERVICE INTERFACES =====

// ResolverService turns a topic into the one session the user should
// resume or start.
type ResolverService interface {
	Resolve(ctx context.Context, topicID uint, userID string) (*ResolveResponse, error)
	CreateForTest(ctx context.Context, testID uint, userID string) (*ResolveResponse, error)
	ListTests(ctx context.Context, topicID uint) ([]*models.Test, error)
}

// SessionService drives a test session: materializing the current
// question, accepting submissions, and completing the session.
type SessionService interface {
	Start(ctx context.Context, sessionID, userID string) (*SessionView, error)
	Submit(ctx context.Context, sessionID string, questionID uint, payload json.RawMessage, userID string) (*SubmitResult, error)
	SweepAbandoned(ctx context.Context) (int64, error)
}

// EvaluationService grades one answer through the remote collaborator.
type EvaluationService interface {
	Evaluate(ctx context.Context, session *models.TestSession, question *models.TestQuestion, payload json.RawMessage) (*models.Submission, error)
}

// ServiceManager aggregates all services behind one handle.
type ServiceManager interface {
	Resolver() ResolverService
	Session() SessionService
	Evaluation() EvaluationService
	Report() ReportService
}

// ===== REQUEST / RESPONSE TYPES =====

type ResolveRequest struct {
	TopicID uint `json:"topic_id" validate:"required,min=1"`
}

type ResolveResponse struct {
	SessionID string `json:"session_id"`
	TestID    uint   `json:"test_id"`
	Resumed   bool   `json:"resumed"`
}

type CreateSessionRequest struct {
	TestID uint `json:"test_id" validate:"required,min=1"`
}

type SubmitAnswerRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// OptionView is what a client may see of an option before grading.
type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type FeedbackView struct {
	IsCorrect bool      `json:"is_correct"`
	Feedback  *string   `json:"feedback,omitempty"`
	GradedAt  time.Time `json:"graded_at"`
}

// QuestionView is the delivered form of one question: sanitized
// content plus, for answered questions, the recorded feedback.
type QuestionView struct {
	QuestionID uint                `json:"question_id"`
	Kind       models.QuestionKind `json:"kind"`
	Title      string              `json:"title"`
	Content    string              `json:"content"`
	Position   int                 `json:"position"`

	// multiple-choice only
	Options          []OptionView `json:"options,omitempty"`
	SelectedOptionID *uint        `json:"selected_option_id,omitempty"`

	// coding-problem only: template on first render, persisted prior
	// answer on resume
	CodeSeed *string `json:"code_seed,omitempty"`

	ReadOnly bool          `json:"read_only"`
	Feedback *FeedbackView `json:"feedback,omitempty"`
}

type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	TestID         uint      `json:"test_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

// SessionView is the full resumable state of a session: replayed
// feedback for every answered question plus the live question, or the
// summary once completed.
type SessionView struct {
	SessionID            string               `json:"session_id"`
	TestID               uint                 `json:"test_id"`
	TestTitle            string               `json:"test_title"`
	Status               models.SessionStatus `json:"status"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	TotalQuestions       int                  `json:"total_questions"`

	Answered []QuestionView  `json:"answered"`
	Current  *QuestionView   `json:"current,omitempty"`
	Summary  *SessionSummary `json:"summary,omitempty"`
}

type SubmitResult struct {
	Feedback  FeedbackView    `json:"feedback"`
	Completed bool            `json:"completed"`
	Next      *QuestionView   `json:"next,omitempty"`
	Summary   *SessionSummary `json:"summary,omitempty"`
}
