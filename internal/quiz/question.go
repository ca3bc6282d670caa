// Package quiz implements multiple-choice quiz sessions: question
// validation, the session state machine, a registry for server-held
// sessions, and persistence of completed attempts.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a question list is empty or a question
// fails structural validation.
var ErrInvalidInput = errors.New("invalid input")

// MinOptions is the minimum number of answer options per question.
const MinOptions = 2

// Question is one multiple-choice question as produced by the generator.
type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// ValidationError describes why a question list was rejected. It unwraps to
// ErrInvalidInput.
type ValidationError struct {
	Index  int // -1 when the list itself is invalid
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: question %d: %s", e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Validate checks the option count and answer index bounds.
func (q Question) Validate() error {
	if len(q.Options) < MinOptions {
		return fmt.Errorf("has %d options, need at least %d", len(q.Options), MinOptions)
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("correctAnswerIndex %d out of range [0,%d)", q.CorrectAnswerIndex, len(q.Options))
	}
	return nil
}

// ValidateQuestions rejects an empty list or any invalid question.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return &ValidationError{Index: -1, Reason: "question list is empty"}
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return &ValidationError{Index: i, Reason: err.Error()}
		}
	}
	return nil
}

// ParseQuestions decodes a JSON array of questions and validates it.
func ParseQuestions(data []byte) ([]Question, error) {
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("decode questions: %v", err)}
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func cloneQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
