package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edforge/test-session-service/internal/events"
	"github.com/edforge/test-session-service/internal/grading"
	"github.com/edforge/test-session-service/internal/models"
)

func twoQuestionTest() *models.Test {
	return &models.Test{
		ID:      1,
		TopicID: 7,
		Title:   "Basics",
		Questions: []models.TestQuestion{
			{
				ID:       10,
				TestID:   1,
				Kind:     models.MultipleChoice,
				Title:    "Pick one",
				Content:  "Which option is right?",
				Position: 0,
				Options: []models.QuestionOption{
					{ID: 100, QuestionID: 10, Text: "A"},
					{ID: 101, QuestionID: 10, Text: "B", IsCorrect: true},
				},
			},
			{
				ID:           11,
				TestID:       1,
				Kind:         models.CodingProblem,
				Title:        "Write code",
				Content:      "Implement the function",
				Position:     1,
				CodeTemplate: strPtr("func solve() {}"),
			},
		},
	}
}

func activeSession(index int) *models.TestSession {
	now := time.Now()
	return &models.TestSession{
		ID:                   "session-1",
		TestID:               1,
		UserID:               "user-1",
		Status:               models.SessionActive,
		CurrentQuestionIndex: index,
		StartedAt:            now.Add(-time.Minute),
		LastActivityAt:       now,
	}
}

type sessionFixture struct {
	repo      *MockRepository
	grader    *MockGradingClient
	publisher *events.MockEventPublisher
	service   SessionService
}

func newSessionFixture() *sessionFixture {
	repo := NewMockRepository()
	grader := new(MockGradingClient)
	publisher := events.NewMockEventPublisher(testLogger())
	evaluator := NewEvaluationService(grader, testLogger())
	service := NewSessionService(repo, evaluator, publisher, nil, testLogger(), 24*time.Hour)
	return &sessionFixture{
		repo:      repo,
		grader:    grader,
		publisher: publisher,
		service:   service,
	}
}

func TestSubmit_AdvancesRegardlessOfCorrectness(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.grader.On("Grade", mock.Anything, mock.Anything).
		Return(&grading.Result{IsCorrect: false, Feedback: strPtr("Not quite")}, nil)
	f.repo.SubmissionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.SessionRepo.On("AdvanceProgress", mock.Anything, "session-1", 1, mock.Anything).Return(nil)

	result, err := f.service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"selected_option_id":100}`), "user-1")

	require.NoError(t, err)
	assert.False(t, result.Feedback.IsCorrect)
	assert.Equal(t, "Not quite", *result.Feedback.Feedback)
	assert.False(t, result.Completed)
	require.NotNil(t, result.Next)
	assert.Equal(t, uint(11), result.Next.QuestionID)
	f.repo.SessionRepo.AssertCalled(t, "AdvanceProgress", mock.Anything, "session-1", 1, mock.Anything)
}

func TestSubmit_LastQuestionCompletesSession(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(1), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.grader.On("Grade", mock.Anything, mock.Anything).
		Return(&grading.Result{IsCorrect: true}, nil)
	f.repo.SubmissionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.SessionRepo.On("Complete", mock.Anything, "session-1", mock.Anything).Return(nil)
	f.repo.SubmissionRepo.On("GetBySession", mock.Anything, "session-1").Return([]*models.Submission{
		{SessionID: "session-1", QuestionID: 10, IsCorrect: false},
		{SessionID: "session-1", QuestionID: 11, IsCorrect: true},
	}, nil)

	result, err := f.service.Submit(context.Background(), "session-1", 11,
		json.RawMessage(`{"source_text":"func solve() { return }"}`), "user-1")

	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Nil(t, result.Next)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 2, result.Summary.TotalQuestions)
	assert.Equal(t, 1, result.Summary.CorrectCount)
	f.repo.SessionRepo.AssertNotCalled(t, "AdvanceProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSessionCompleted, published[0].Type)
}

func TestSubmit_InvalidPayloadNeverReachesGrader(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)

	_, err := f.service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"source_text":"wrong shape"}`), "user-1")

	assert.ErrorIs(t, err, ErrInvalidPayload)
	f.grader.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything)
	f.repo.SubmissionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_AnsweredQuestionReplaysRecordedFeedback(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(1), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	recorded := &models.Submission{
		SessionID:  "session-1",
		QuestionID: 10,
		IsCorrect:  true,
		Feedback:   strPtr("Recorded earlier"),
		GradedAt:   time.Now().Add(-time.Minute),
	}
	f.repo.SubmissionRepo.On("GetBySessionAndQuestion", mock.Anything, "session-1", uint(10)).
		Return(recorded, nil)

	result, err := f.service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"selected_option_id":100}`), "user-1")

	require.NoError(t, err)
	assert.True(t, result.Feedback.IsCorrect)
	assert.Equal(t, "Recorded earlier", *result.Feedback.Feedback)
	require.NotNil(t, result.Next)
	assert.Equal(t, uint(11), result.Next.QuestionID)
	f.grader.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything)
	f.repo.SubmissionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_FutureQuestionRejected(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.repo.SubmissionRepo.On("GetBySessionAndQuestion", mock.Anything, "session-1", uint(11)).
		Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.Submit(context.Background(), "session-1", 11,
		json.RawMessage(`{"source_text":"code"}`), "user-1")

	assert.ErrorIs(t, err, ErrQuestionNotCurrent)
	f.grader.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything)
}

func TestSubmit_UnknownQuestion(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)

	_, err := f.service.Submit(context.Background(), "session-1", 999,
		json.RawMessage(`{"selected_option_id":100}`), "user-1")

	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSubmit_CompletedSession(t *testing.T) {
	f := newSessionFixture()
	completed := activeSession(1)
	completed.Status = models.SessionCompleted
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(completed, nil)

	_, err := f.service.Submit(context.Background(), "session-1", 11,
		json.RawMessage(`{"source_text":"code"}`), "user-1")

	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestSubmit_ForeignSession(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)

	_, err := f.service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"selected_option_id":100}`), "intruder")

	var pe *PermissionError
	assert.ErrorAs(t, err, &pe)
}

func TestSubmit_EvaluationFailureIsRecoverable(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.grader.On("Grade", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := f.service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"selected_option_id":100}`), "user-1")

	assert.ErrorIs(t, err, ErrEvaluationFailed)
	assert.True(t, IsRecoverable(err))
	f.repo.SubmissionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.repo.SessionRepo.AssertNotCalled(t, "AdvanceProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// blockingGrader holds every Grade call until released, counting calls.
type blockingGrader struct {
	release chan struct{}
	calls   int32
}

func (g *blockingGrader) Grade(ctx context.Context, req *grading.GradeRequest) (*grading.Result, error) {
	atomic.AddInt32(&g.calls, 1)
	<-g.release
	return &grading.Result{IsCorrect: true}, nil
}

func TestSubmit_DuplicateInFlightRejected(t *testing.T) {
	repo := NewMockRepository()
	grader := &blockingGrader{release: make(chan struct{})}
	publisher := events.NewMockEventPublisher(testLogger())
	evaluator := NewEvaluationService(grader, testLogger())
	service := NewSessionService(repo, evaluator, publisher, nil, testLogger(), 24*time.Hour)

	repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(0), nil)
	repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	repo.SubmissionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.SessionRepo.On("AdvanceProgress", mock.Anything, "session-1", 1, mock.Anything).Return(nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := service.Submit(context.Background(), "session-1", 10,
			json.RawMessage(`{"selected_option_id":101}`), "user-1")
		firstDone <- err
	}()

	// Wait until the first submission is inside the grader.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&grader.calls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := service.Submit(context.Background(), "session-1", 10,
		json.RawMessage(`{"selected_option_id":101}`), "user-1")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	close(grader.release)
	require.NoError(t, <-firstDone)

	// The rejected duplicate never reached the grader.
	assert.Equal(t, int32(1), atomic.LoadInt32(&grader.calls))
}

func TestStart_ReplaysWithoutEvaluation(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(activeSession(1), nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.repo.SubmissionRepo.On("GetBySession", mock.Anything, "session-1").Return([]*models.Submission{
		{
			SessionID:  "session-1",
			QuestionID: 10,
			Payload:    []byte(`{"selected_option_id":101}`),
			IsCorrect:  true,
			GradedAt:   time.Now().Add(-time.Minute),
		},
	}, nil)

	view, err := f.service.Start(context.Background(), "session-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, view.Status)
	assert.Equal(t, 2, view.TotalQuestions)
	require.Len(t, view.Answered, 1)
	assert.True(t, view.Answered[0].ReadOnly)
	require.NotNil(t, view.Current)
	assert.Equal(t, uint(11), view.Current.QuestionID)
	assert.False(t, view.Current.ReadOnly)
	f.grader.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything)
}

func TestStart_CompletedSessionCarriesSummary(t *testing.T) {
	f := newSessionFixture()
	completedAt := time.Now().Add(-time.Hour)
	session := activeSession(1)
	session.Status = models.SessionCompleted
	session.CompletedAt = &completedAt
	f.repo.SessionRepo.On("GetByID", mock.Anything, "session-1").Return(session, nil)
	f.repo.TestRepo.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(twoQuestionTest(), nil)
	f.repo.SubmissionRepo.On("GetBySession", mock.Anything, "session-1").Return([]*models.Submission{
		{SessionID: "session-1", QuestionID: 10, IsCorrect: true, Payload: []byte(`{"selected_option_id":101}`)},
		{SessionID: "session-1", QuestionID: 11, IsCorrect: true, Payload: []byte(`{"source_text":"code"}`)},
	}, nil)

	view, err := f.service.Start(context.Background(), "session-1", "user-1")

	require.NoError(t, err)
	assert.Nil(t, view.Current)
	require.NotNil(t, view.Summary)
	assert.Equal(t, 2, view.Summary.CorrectCount)
	assert.Equal(t, completedAt.Unix(), view.Summary.CompletedAt.Unix())
}

func TestStart_NotFound(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.Start(context.Background(), "missing", "user-1")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepAbandoned(t *testing.T) {
	f := newSessionFixture()
	f.repo.SessionRepo.On("MarkAbandonedBefore", mock.Anything, mock.Anything).Return(int64(3), nil)

	swept, err := f.service.SweepAbandoned(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSessionAbandoned, published[0].Type)
}
