package services

import (
	"errors"
	"fmt"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Resolution errors
	ErrUnauthenticated       = errors.New("user is not authenticated")
	ErrNoTestAvailable       = errors.New("no test available for topic")
	ErrSessionCreationFailed = errors.New("failed to create test session")

	// Session errors
	ErrSessionNotFound  = errors.New("test session not found")
	ErrSessionCompleted = errors.New("test session already completed")
	ErrSessionNotActive = errors.New("test session is not active")

	// Submission errors
	ErrInvalidPayload      = errors.New("answer payload does not match question kind")
	ErrAnswerNotReady      = errors.New("answer is incomplete")
	ErrDuplicateSubmission = errors.New("a submission is already in flight for this session")
	ErrQuestionNotCurrent  = errors.New("question is not the current question of the session")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrEvaluationFailed    = errors.New("answer evaluation failed")

	// Reporting errors
	ErrReportNotAvailable = errors.New("report is only available for completed sessions")
)

// ===== CUSTOM ERROR TYPES =====

type PermissionError struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s session %s - %s",
		pe.UserID, pe.Action, pe.SessionID, pe.Reason)
}

func NewPermissionError(userID, sessionID, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		Reason:    reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}

// IsUnauthorized checks if error represents an access problem
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsLocalRejection checks if error was rejected before any remote call
// (programmer-contract violations that must never reach the grading API)
func IsLocalRejection(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrAnswerNotReady) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrQuestionNotCurrent)
}

// IsRecoverable checks if the caller may retry the same submission
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrEvaluationFailed)
}

// IsNavigational checks if error must surface as a redirect decision
func IsNavigational(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrNoTestAvailable) ||
		errors.Is(err, ErrSessionCreationFailed)
}
