package model

import "time"

// Language is a programming language offered in the debug and coding rounds.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
)

// ValidLanguage reports whether l is offered.
func ValidLanguage(l Language) bool {
	switch l {
	case LangPython, LangJavaScript, LangJava, LangC, LangCpp:
		return true
	}
	return false
}

// RoundDuration returns the time limit of a round.
func RoundDuration(t RoundType) time.Duration {
	switch t {
	case RoundCoding:
		return 30 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// SelectLanguageRequest picks the language of the current attempt.
type SelectLanguageRequest struct {
	Language Language `json:"language" binding:"required,oneof=python javascript java c cpp"`
}

// QuizAnswerRequest records one multiple-choice answer.
type QuizAnswerRequest struct {
	Question int `json:"question" binding:"min=0"`
	Option   int `json:"option" binding:"min=0"`
}

// RunTestsRequest carries the code under test for one question.
type RunTestsRequest struct {
	Code string `json:"code" binding:"max=65536"`
}

// RoundResult is a submitted round queued for persistence.
type RoundResult struct {
	ParticipantID string    `json:"participant_id"`
	RoundType     RoundType `json:"round_type"`
	Door          int       `json:"door"`
	Round         int       `json:"round"`
	Score         int       `json:"score"`
	HintsUsed     int       `json:"hints_used"`
	Passed        bool      `json:"passed"`
	Trigger       string    `json:"trigger"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
