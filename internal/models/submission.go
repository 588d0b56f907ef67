package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is the graded answer for one question of one session.
// At most one exists per (session, question); once written it is
// immutable.
type Submission struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SessionID  string         `json:"session_id" gorm:"not null;size:36;uniqueIndex:idx_submission_session_question"`
	QuestionID uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_submission_session_question"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`

	// Feedback as issued by the grading collaborator
	IsCorrect bool      `json:"is_correct" gorm:"not null"`
	Feedback  *string   `json:"feedback,omitempty" gorm:"type:text"`
	GradedAt  time.Time `json:"graded_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (Submission) TableName() string { return "submissions" }

// MultipleChoiceAnswer is the payload shape for multiple_choice.
type MultipleChoiceAnswer struct {
	SelectedOptionID uint `json:"selected_option_id"`
}

// CodingAnswer is the payload shape for coding_problem.
type CodingAnswer struct {
	SourceText string `json:"source_text"`
}
