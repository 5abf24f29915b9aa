// Package questionbank holds the bundled default questions and the rules
// for validating question payloads per round type.
package questionbank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stemsi/paradox-backend/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	ErrInvalidSlot     = errors.New("invalid round type or door")
	ErrInvalidQuestion = errors.New("invalid question")
)

// Bank is the bundled question set, keyed by door.
type Bank struct {
	Quiz   map[int][]model.QuizQuestion   `yaml:"quiz"`
	Debug  map[int][]model.DebugQuestion  `yaml:"debug"`
	Coding map[int][]model.CodingQuestion `yaml:"coding"`
}

var (
	loadOnce sync.Once
	bundled  *Bank
	loadErr  error
)

// Defaults parses the embedded question set once.
func Defaults() (*Bank, error) {
	loadOnce.Do(func() {
		bundled, loadErr = Parse(defaultsYAML)
	})
	return bundled, loadErr
}

// Parse decodes a YAML question set.
func Parse(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return &b, nil
}

// Slot returns the questions of one slot as JSON documents.
func (b *Bank) Slot(t model.RoundType, door int) ([]json.RawMessage, error) {
	if !t.Valid() || !model.ValidDoor(door) {
		return nil, ErrInvalidSlot
	}
	switch t {
	case model.RoundQuiz:
		return marshalAll(b.Quiz[door])
	case model.RoundDebug:
		return marshalAll(b.Debug[door])
	default:
		return marshalAll(b.Coding[door])
	}
}

func marshalAll[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// Validate checks that every question decodes as the slot's type and carries
// the fields a round needs.
func Validate(t model.RoundType, questions []json.RawMessage) error {
	if !t.Valid() {
		return ErrInvalidSlot
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidQuestion)
	}

	for i, raw := range questions {
		if err := validateOne(t, raw); err != nil {
			return fmt.Errorf("%w at index %d: %v", ErrInvalidQuestion, i, err)
		}
	}
	return nil
}

func validateOne(t model.RoundType, raw json.RawMessage) error {
	switch t {
	case model.RoundQuiz:
		var q model.QuizQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		if q.Question == "" {
			return errors.New("question text is empty")
		}
		if len(q.Options) < 2 {
			return errors.New("at least two options are required")
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return errors.New("correctAnswer is out of range")
		}
	case model.RoundDebug:
		var q model.DebugQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		if q.Title == "" {
			return errors.New("title is empty")
		}
		if len(q.BuggyCode) == 0 {
			return errors.New("buggyCode is empty")
		}
		if len(q.TestCases) == 0 {
			return errors.New("at least one test case is required")
		}
	case model.RoundCoding:
		var q model.CodingQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return err
		}
		if q.Title == "" {
			return errors.New("title is empty")
		}
		if len(q.TestCases) == 0 {
			return errors.New("at least one test case is required")
		}
	}
	return nil
}

// TestCases extracts per-question test cases of a debug or coding slot.
// Quiz slots yield nil.
func TestCases(t model.RoundType, questions []json.RawMessage) ([][]model.TestCaseSpec, error) {
	if t == model.RoundQuiz {
		return nil, nil
	}
	out := make([][]model.TestCaseSpec, len(questions))
	for i, raw := range questions {
		var q struct {
			TestCases []model.TestCaseSpec `json:"testCases"`
		}
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidQuestion, i, err)
		}
		out[i] = q.TestCases
	}
	return out, nil
}

// CorrectAnswers extracts the correct option index of every quiz question.
func CorrectAnswers(questions []json.RawMessage) ([]int, error) {
	out := make([]int, len(questions))
	for i, raw := range questions {
		var q model.QuizQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidQuestion, i, err)
		}
		out[i] = q.CorrectAnswer
	}
	return out, nil
}

// Redact strips answer keys from quiz questions so they can be served to
// participants. Other round types are returned unchanged.
func Redact(t model.RoundType, questions []json.RawMessage) ([]json.RawMessage, error) {
	if t != model.RoundQuiz {
		return questions, nil
	}
	out := make([]json.RawMessage, len(questions))
	for i, raw := range questions {
		var q map[string]any
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidQuestion, i, err)
		}
		delete(q, "correctAnswer")
		red, err := json.Marshal(q)
		if err != nil {
			return nil, err
		}
		out[i] = red
	}
	return out, nil
}
