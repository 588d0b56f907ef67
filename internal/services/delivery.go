package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/edforge/test-session-service/internal/models"
)

// Question delivery: the per-kind view building and answer collection
// for the two question variants. Adding a kind means adding one case
// to each dispatch below.

// BuildQuestionView produces the client-facing form of a question.
// Option correctness never leaves this function; a recorded submission
// makes the view read-only and replays its feedback and prior answer.
func BuildQuestionView(question *models.TestQuestion, prior *models.Submission) *QuestionView {
	view := &QuestionView{
		QuestionID: question.ID,
		Kind:       question.Kind,
		Title:      question.Title,
		Content:    question.Content,
		Position:   question.Position,
	}

	if prior != nil {
		view.ReadOnly = true
		view.Feedback = &FeedbackView{
			IsCorrect: prior.IsCorrect,
			Feedback:  prior.Feedback,
			GradedAt:  prior.GradedAt,
		}
	}

	switch question.Kind {
	case models.MultipleChoice:
		view.Options = make([]OptionView, len(question.Options))
		for i, opt := range question.Options {
			view.Options[i] = OptionView{ID: opt.ID, Text: opt.Text}
		}
		if prior != nil {
			var answer models.MultipleChoiceAnswer
			if err := json.Unmarshal(prior.Payload, &answer); err == nil && answer.SelectedOptionID != 0 {
				selected := answer.SelectedOptionID
				view.SelectedOptionID = &selected
			}
		}

	case models.CodingProblem:
		if prior != nil {
			var answer models.CodingAnswer
			if err := json.Unmarshal(prior.Payload, &answer); err == nil {
				seed := answer.SourceText
				view.CodeSeed = &seed
			}
		} else if question.CodeTemplate != nil {
			seed := *question.CodeTemplate
			view.CodeSeed = &seed
		}
	}

	return view
}

// CollectAnswer validates a raw payload against the question's kind and
// returns it in normalized form. Shape mismatches fail with
// ErrInvalidPayload before any remote call; incomplete answers fail
// with ErrAnswerNotReady.
func CollectAnswer(question *models.TestQuestion, payload json.RawMessage) (json.RawMessage, error) {
	switch question.Kind {
	case models.MultipleChoice:
		return collectMultipleChoice(question, payload)
	case models.CodingProblem:
		return collectCoding(payload)
	default:
		return nil, ErrInvalidPayload
	}
}

func collectMultipleChoice(question *models.TestQuestion, payload json.RawMessage) (json.RawMessage, error) {
	var answer models.MultipleChoiceAnswer
	if err := decodeStrict(payload, &answer); err != nil {
		return nil, ErrInvalidPayload
	}
	if answer.SelectedOptionID == 0 {
		return nil, ErrAnswerNotReady
	}

	// The selected option must belong to this question.
	valid := false
	for _, opt := range question.Options {
		if opt.ID == answer.SelectedOptionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidPayload
	}

	return json.Marshal(answer)
}

func collectCoding(payload json.RawMessage) (json.RawMessage, error) {
	var answer models.CodingAnswer
	if err := decodeStrict(payload, &answer); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(answer.SourceText) == "" {
		return nil, ErrAnswerNotReady
	}

	return json.Marshal(answer)
}

// decodeStrict rejects payloads carrying fields of another answer
// shape, so a coding payload can never pass as a choice selection.
func decodeStrict(payload json.RawMessage, dest interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}
