package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	CodingProblem  QuestionKind = "coding_problem"
)

type Test struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	TopicID uint   `json:"topic_id" gorm:"not null;index"`
	Title   string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []TestQuestion `json:"questions" gorm:"foreignKey:TestID"`
}

// TestQuestion is one position in a test. Kind is immutable once the
// question is stored; a payload is only valid against its own kind.
type TestQuestion struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	TestID   uint         `json:"test_id" gorm:"not null;index"`
	Kind     QuestionKind `json:"kind" gorm:"not null;size:32" validate:"required,question_kind"`
	Title    string       `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Content  string       `json:"content" gorm:"type:text;not null" validate:"required"`
	Position int          `json:"position" gorm:"not null;index"`

	// coding_problem only
	CodeTemplate *string `json:"code_template,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Options []QuestionOption `json:"options" gorm:"foreignKey:QuestionID"`
}

// QuestionOption is a multiple-choice candidate. IsCorrect never
// leaves the service.
type QuestionOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;size:500" validate:"required,min=1,max=500"`
	Position   int    `json:"position" gorm:"not null"`
	IsCorrect  bool   `json:"-" gorm:"not null;default:false"`
}

func (Test) TableName() string           { return "tests" }
func (TestQuestion) TableName() string   { return "test_questions" }
func (QuestionOption) TableName() string { return "question_options" }
