package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// RoundType names one of the three round kinds.
type RoundType string

const (
	RoundQuiz   RoundType = "quiz"
	RoundDebug  RoundType = "debug"
	RoundCoding RoundType = "coding"
)

// RoundTypes lists round kinds in play order.
var RoundTypes = []RoundType{RoundQuiz, RoundDebug, RoundCoding}

// Doors is the number of difficulty tracks per round.
const Doors = 3

// Number returns the 1-based position of the round in the exam, or 0.
func (t RoundType) Number() int {
	switch t {
	case RoundQuiz:
		return 1
	case RoundDebug:
		return 2
	case RoundCoding:
		return 3
	}
	return 0
}

// Valid reports whether t is a known round type.
func (t RoundType) Valid() bool { return t.Number() != 0 }

// ValidDoor reports whether door is in 1..Doors.
func ValidDoor(door int) bool { return door >= 1 && door <= Doors }

// SlotKey is the storage key of a question slot, e.g. "debug_door2".
func SlotKey(t RoundType, door int) string {
	return string(t) + "_door" + strconv.Itoa(door)
}

// QuizQuestion is a multiple-choice question.
type QuizQuestion struct {
	ID            int      `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
}

// TestCaseSpec is one input/expected-output pair of a code question.
type TestCaseSpec struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
}

// DebugQuestion is a buggy program to repair.
type DebugQuestion struct {
	ID          int               `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	BuggyCode   map[string]string `json:"buggyCode" yaml:"buggyCode"`
	TestCases   []TestCaseSpec    `json:"testCases" yaml:"testCases"`
	Hint        string            `json:"hint" yaml:"hint"`
}

// CodingExample illustrates a coding problem.
type CodingExample struct {
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// CodingQuestion is a full implementation problem.
type CodingQuestion struct {
	ID          int               `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Difficulty  string            `json:"difficulty" yaml:"difficulty"`
	Examples    []CodingExample   `json:"examples" yaml:"examples"`
	Constraints []string          `json:"constraints" yaml:"constraints"`
	StarterCode map[string]string `json:"starterCode" yaml:"starterCode"`
	TestCases   []TestCaseSpec    `json:"testCases" yaml:"testCases"`
}

// QuestionSlot is the ordered question list stored for (type, door).
type QuestionSlot struct {
	Type      RoundType         `json:"type"`
	Door      int               `json:"door"`
	Questions []json.RawMessage `json:"questions"`
	UpdatedAt time.Time         `json:"updated_at"`
	// Bundled is true when the slot came from the embedded defaults.
	Bundled bool `json:"bundled"`
}

// SaveQuestionsRequest is the admin payload for replacing a slot.
type SaveQuestionsRequest struct {
	Questions []json.RawMessage `json:"questions" binding:"required,min=1"`
}

// SlotURI addresses a question slot in admin paths.
type SlotURI struct {
	Type string `uri:"type" binding:"required,roundtype"`
	Door int    `uri:"door" binding:"required,door"`
}

// RoundURI addresses a round type in participant paths.
type RoundURI struct {
	Type string `uri:"type" binding:"required,roundtype"`
}
