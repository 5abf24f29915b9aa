package progress

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/stemsi/paradox-backend/internal/model"
)

// TestStatus is the lifecycle of one test case run:
// pending -> running -> passed | failed.
type TestStatus string

const (
	TestPending TestStatus = "pending"
	TestRunning TestStatus = "running"
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
)

// TestCase is the observable state of one test case of a question.
type TestCase struct {
	ID             int        `json:"id"`
	Input          string     `json:"input"`
	ExpectedOutput string     `json:"expected_output"`
	Status         TestStatus `json:"status"`
	ActualOutput   string     `json:"actual_output,omitempty"`
}

// CaseResult is what a judge reports for one test case.
type CaseResult struct {
	Passed       bool
	ActualOutput string
}

// Judge executes code against test cases. Implementations must honour ctx
// and return one result per case, in order.
type Judge interface {
	Run(ctx context.Context, language model.Language, code string, cases []model.TestCaseSpec) ([]CaseResult, error)
}

// SimulatedJudge stands in for a sandboxed runner: it waits Delay and then
// decides each case with Decide.
type SimulatedJudge struct {
	Delay  time.Duration
	Decide func(code string, tc model.TestCaseSpec) bool
}

// NewSimulatedJudge returns a judge that passes roughly 70% of cases.
func NewSimulatedJudge(delay time.Duration) *SimulatedJudge {
	return &SimulatedJudge{
		Delay: delay,
		Decide: func(string, model.TestCaseSpec) bool {
			return rand.Float64() > 0.3
		},
	}
}

func (j *SimulatedJudge) Run(ctx context.Context, _ model.Language, code string, cases []model.TestCaseSpec) ([]CaseResult, error) {
	if j.Delay > 0 {
		timer := time.NewTimer(j.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	results := make([]CaseResult, len(cases))
	for i, tc := range cases {
		if j.Decide(code, tc) {
			results[i] = CaseResult{Passed: true, ActualOutput: tc.ExpectedOutput}
		} else {
			results[i] = CaseResult{Passed: false, ActualOutput: "Different output..."}
		}
	}
	return results, nil
}
