package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stemsi/paradox-backend/internal/model"
)

// State is the lifecycle of a round attempt.
type State string

const (
	StateNotStarted       State = "not_started"
	StateLanguageSelected State = "language_selected"
	StateInProgress       State = "in_progress"
	StateSubmitted        State = "submitted"
)

// Trigger names what caused a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerTimeUp Trigger = "time_up"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in current attempt state")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrQuestionIndex     = errors.New("question index out of range")
	ErrWrongRoundType    = errors.New("action not available for this round type")
	ErrNoJudge           = errors.New("no judge configured")
)

// EventType classifies attempt events.
type EventType string

const (
	EventTick        EventType = "tick"
	EventTestsUpdate EventType = "tests_update"
	EventHint        EventType = "hint_revealed"
	EventSubmitted   EventType = "submitted"
)

// Event is emitted on every observable change of an attempt.
type Event struct {
	Type      EventType  `json:"type"`
	Question  int        `json:"question,omitempty"`
	Remaining int        `json:"remaining_seconds"`
	Tests     []TestCase `json:"tests,omitempty"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// Summary is the frozen result of a submitted attempt.
type Summary struct {
	Round          model.RoundType `json:"round"`
	Door           int             `json:"door"`
	RoundNumber    int             `json:"round_number"`
	QuestionScores []int           `json:"question_scores"`
	HintsUsed      int             `json:"hints_used"`
	Penalty        int             `json:"penalty"`
	Score          int             `json:"score"`
	Passed         bool            `json:"passed"`
	Trigger        Trigger         `json:"trigger"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// AttemptConfig describes one attempt. TestCases has one entry per question
// for debug and coding rounds and is ignored for quiz rounds.
type AttemptConfig struct {
	Round     model.RoundType
	Door      int
	Questions int
	TestCases [][]model.TestCaseSpec
	Duration  time.Duration
	Tick      time.Duration
	Judge     Judge

	// OnSubmit runs once, outside the attempt lock, after the attempt freezes.
	OnSubmit func(Summary)
	// OnEvent receives every attempt event. It must not block.
	OnEvent func(Event)
}

type item struct {
	score  int
	answer *int
	tests  []TestCase
	specs  []model.TestCaseSpec
	gen    int
	cancel context.CancelFunc
}

// Attempt is one participant's run through one round slot. All methods are
// safe for concurrent use; submission happens exactly once whether it is
// triggered explicitly or by the countdown.
type Attempt struct {
	mu        sync.Mutex
	cfg       AttemptConfig
	state     State
	language  model.Language
	items     []*item
	hints     HintTracker
	countdown *Countdown
	startedAt time.Time
	summary   *Summary
}

// NewAttempt returns an attempt in StateNotStarted.
func NewAttempt(cfg AttemptConfig) *Attempt {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Duration <= 0 {
		cfg.Duration = model.RoundDuration(cfg.Round)
	}

	items := make([]*item, cfg.Questions)
	for i := range items {
		it := &item{}
		if cfg.Round != model.RoundQuiz && i < len(cfg.TestCases) {
			it.specs = cfg.TestCases[i]
			it.tests = make([]TestCase, len(it.specs))
			for j, spec := range it.specs {
				it.tests[j] = TestCase{
					ID:             j + 1,
					Input:          spec.Input,
					ExpectedOutput: spec.ExpectedOutput,
					Status:         TestPending,
				}
			}
		}
		items[i] = it
	}

	return &Attempt{cfg: cfg, state: StateNotStarted, items: items}
}

// SelectLanguage picks the working language. It may be changed until the
// attempt begins.
func (a *Attempt) SelectLanguage(lang model.Language) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateNotStarted, StateLanguageSelected:
		a.language = lang
		a.state = StateLanguageSelected
		return nil
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	return ErrInvalidTransition
}

// Begin starts the countdown. Quiz rounds may begin without a language.
func (a *Attempt) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateLanguageSelected:
	case StateNotStarted:
		if a.cfg.Round != model.RoundQuiz {
			return ErrInvalidTransition
		}
	case StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}

	a.state = StateInProgress
	a.startedAt = time.Now()
	a.countdown = StartCountdown(a.cfg.Duration, a.cfg.Tick, a.onTick, a.onExpire)
	return nil
}

// Answer records a quiz answer. A correct answer scores the question 100.
func (a *Attempt) Answer(q, option int, correct bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkActive(q); err != nil {
		return err
	}
	if a.cfg.Round != model.RoundQuiz {
		return ErrWrongRoundType
	}

	opt := option
	a.items[q].answer = &opt
	if correct {
		a.items[q].score = 100
	} else {
		a.items[q].score = 0
	}
	return nil
}

// RevealHint marks q's hint as used. It returns whether this was the first
// reveal for q and the resulting total penalty.
func (a *Attempt) RevealHint(q int) (bool, int, error) {
	a.mu.Lock()
	if err := a.checkActive(q); err != nil {
		a.mu.Unlock()
		return false, 0, err
	}
	if a.cfg.Round != model.RoundDebug {
		a.mu.Unlock()
		return false, 0, ErrWrongRoundType
	}
	first := a.hints.Reveal(q)
	penalty := a.hints.Penalty()
	a.mu.Unlock()

	if first {
		a.emit(Event{Type: EventHint, Question: q})
	}
	return first, penalty, nil
}

// RunTests marks q's test cases running and judges code asynchronously.
// Results that arrive after a newer run of the same question, or after
// submission, are discarded.
func (a *Attempt) RunTests(ctx context.Context, q int, code string) error {
	a.mu.Lock()
	if err := a.checkActive(q); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.cfg.Round == model.RoundQuiz {
		a.mu.Unlock()
		return ErrWrongRoundType
	}
	if a.cfg.Judge == nil {
		a.mu.Unlock()
		return ErrNoJudge
	}

	it := a.items[q]
	if it.cancel != nil {
		it.cancel()
	}
	it.gen++
	gen := it.gen
	runCtx, cancel := context.WithCancel(ctx)
	it.cancel = cancel
	for i := range it.tests {
		it.tests[i].Status = TestRunning
		it.tests[i].ActualOutput = ""
	}
	specs := it.specs
	lang := a.language
	snapshot := cloneTests(it.tests)
	a.mu.Unlock()

	a.emit(Event{Type: EventTestsUpdate, Question: q, Tests: snapshot})

	go a.judge(runCtx, cancel, q, gen, lang, code, specs)
	return nil
}

func (a *Attempt) judge(ctx context.Context, cancel context.CancelFunc, q, gen int, lang model.Language, code string, specs []model.TestCaseSpec) {
	defer cancel()
	results, err := a.cfg.Judge.Run(ctx, lang, code, specs)

	a.mu.Lock()
	it := a.items[q]
	if a.state == StateSubmitted || it.gen != gen {
		a.mu.Unlock()
		return
	}
	it.cancel = nil

	passed := 0
	for i := range it.tests {
		switch {
		case err != nil:
			it.tests[i].Status = TestFailed
			it.tests[i].ActualOutput = err.Error()
		case i < len(results) && results[i].Passed:
			it.tests[i].Status = TestPassed
			it.tests[i].ActualOutput = results[i].ActualOutput
			passed++
		default:
			it.tests[i].Status = TestFailed
			if i < len(results) {
				it.tests[i].ActualOutput = results[i].ActualOutput
			}
		}
	}
	it.score = Percent(passed, len(it.tests))
	snapshot := cloneTests(it.tests)
	a.mu.Unlock()

	a.emit(Event{Type: EventTestsUpdate, Question: q, Tests: snapshot})
}

// Submit freezes the attempt and computes its summary. Only the first call
// succeeds; later calls return ErrAlreadySubmitted.
func (a *Attempt) Submit(trigger Trigger) (Summary, error) {
	a.mu.Lock()
	switch a.state {
	case StateSubmitted:
		a.mu.Unlock()
		return Summary{}, ErrAlreadySubmitted
	case StateInProgress:
	default:
		a.mu.Unlock()
		return Summary{}, ErrInvalidTransition
	}

	a.state = StateSubmitted
	if a.countdown != nil {
		a.countdown.Stop()
	}
	for _, it := range a.items {
		if it.cancel != nil {
			it.cancel()
			it.cancel = nil
		}
	}

	scores := make([]int, len(a.items))
	for i, it := range a.items {
		scores[i] = it.score
	}
	penalty := a.hints.Penalty()
	score := Average(scores, penalty)
	summary := Summary{
		Round:          a.cfg.Round,
		Door:           a.cfg.Door,
		RoundNumber:    a.cfg.Round.Number(),
		QuestionScores: scores,
		HintsUsed:      a.hints.Count(),
		Penalty:        penalty,
		Score:          score,
		Passed:         Passed(score),
		Trigger:        trigger,
		SubmittedAt:    time.Now(),
	}
	a.summary = &summary
	a.mu.Unlock()

	if a.cfg.OnSubmit != nil {
		a.cfg.OnSubmit(summary)
	}
	a.emit(Event{Type: EventSubmitted, Summary: &summary})
	return summary, nil
}

// Close stops the countdown and any pending judge runs without submitting.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.countdown != nil {
		a.countdown.Stop()
	}
	for _, it := range a.items {
		if it.cancel != nil {
			it.cancel()
			it.cancel = nil
		}
	}
}

// State returns the current lifecycle state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// QuestionView is the observable state of one question.
type QuestionView struct {
	Index        int        `json:"index"`
	Score        int        `json:"score"`
	Answer       *int       `json:"answer,omitempty"`
	HintRevealed bool       `json:"hint_revealed"`
	Tests        []TestCase `json:"tests,omitempty"`
}

// View is a point-in-time copy of an attempt.
type View struct {
	Round            model.RoundType `json:"round"`
	Door             int             `json:"door"`
	State            State           `json:"state"`
	Language         model.Language  `json:"language,omitempty"`
	RemainingSeconds int             `json:"remaining_seconds"`
	HintsUsed        int             `json:"hints_used"`
	Penalty          int             `json:"penalty"`
	Questions        []QuestionView  `json:"questions"`
	Summary          *Summary        `json:"summary,omitempty"`
}

// Snapshot returns a copy of the attempt's current state.
func (a *Attempt) Snapshot() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := View{
		Round:            a.cfg.Round,
		Door:             a.cfg.Door,
		State:            a.state,
		Language:         a.language,
		RemainingSeconds: a.remainingLocked(),
		HintsUsed:        a.hints.Count(),
		Penalty:          a.hints.Penalty(),
		Questions:        make([]QuestionView, len(a.items)),
		Summary:          a.summary,
	}
	for i, it := range a.items {
		v.Questions[i] = QuestionView{
			Index:        i,
			Score:        it.score,
			Answer:       it.answer,
			HintRevealed: a.hints.Revealed(i),
			Tests:        cloneTests(it.tests),
		}
	}
	return v
}

func (a *Attempt) remainingLocked() int {
	switch {
	case a.state == StateSubmitted:
		return 0
	case a.countdown == nil:
		return int(a.cfg.Duration / time.Second)
	}
	return int(a.countdown.Remaining() / time.Second)
}

func (a *Attempt) checkActive(q int) error {
	switch a.state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateInProgress:
	default:
		return ErrInvalidTransition
	}
	if q < 0 || q >= len(a.items) {
		return ErrQuestionIndex
	}
	return nil
}

func (a *Attempt) onTick(remaining time.Duration) {
	a.emit(Event{Type: EventTick, Remaining: int(remaining / time.Second)})
}

func (a *Attempt) onExpire() {
	// No-op when a manual submit already froze the attempt.
	_, _ = a.Submit(TriggerTimeUp)
}

func (a *Attempt) emit(ev Event) {
	if a.cfg.OnEvent != nil {
		a.cfg.OnEvent(ev)
	}
}

func cloneTests(in []TestCase) []TestCase {
	if in == nil {
		return nil
	}
	out := make([]TestCase, len(in))
	copy(out, in)
	return out
}
