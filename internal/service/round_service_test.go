package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/questionbank"
)

type roundFixture struct {
	mr     *miniredis.Miniredis
	game   *memGame
	people *memParticipants
	svc    *RoundService
	games  *GameStateService
}

func newRoundFixture(t *testing.T) *roundFixture {
	t.Helper()
	mr, rdb := newTestRedis(t)
	bank, err := questionbank.Defaults()
	if err != nil {
		t.Fatal(err)
	}

	f := &roundFixture{mr: mr, game: &memGame{}, people: newMemParticipants()}
	f.people.rows["ada"] = &model.Participant{ID: "ada", Name: "Ada"}

	f.games = NewGameStateService(f.game, rdb, time.Minute, nopLog)
	participants := NewParticipantService(f.people, plainVerifier{}, nopLog)
	questions := NewQuestionService(newMemSlots(), rdb, bank, nopLog)
	judge := &progress.SimulatedJudge{Decide: func(string, model.TestCaseSpec) bool { return true }}

	f.svc = NewRoundService(f.games, participants, questions, nil, judge, rdb, nopLog)
	f.svc.Tick = 10 * time.Millisecond
	t.Cleanup(f.svc.Shutdown)
	return f
}

func (f *roundFixture) queued(t *testing.T) []model.RoundResult {
	t.Helper()
	return f.list(t, config.WorkerKey.PersistProgressQueue)
}

func (f *roundFixture) recorded(t *testing.T) []model.RoundResult {
	t.Helper()
	return f.list(t, config.WorkerKey.PersistActivityQueue)
}

func (f *roundFixture) list(t *testing.T, queue string) []model.RoundResult {
	t.Helper()
	items, err := f.mr.List(queue)
	if err != nil {
		return nil
	}
	out := make([]model.RoundResult, len(items))
	for i, raw := range items {
		if err := json.Unmarshal([]byte(raw), &out[i]); err != nil {
			t.Fatal(err)
		}
	}
	return out
}

func TestStartRequiresUnlockedRound(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)

	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1); !errors.Is(err, ErrGameNotStarted) {
		t.Fatalf("before start: err = %v", err)
	}

	if _, err := f.games.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "ada", model.RoundDebug, 1); !errors.Is(err, ErrRoundLocked) {
		t.Fatalf("round past active: err = %v", err)
	}

	if _, err := f.games.SetActiveRound(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "ada", model.RoundDebug, 1); !errors.Is(err, ErrRoundLocked) {
		t.Fatalf("previous round incomplete: err = %v", err)
	}

	f.people.rows["ada"].RoundsCompleted = 1
	if _, err := f.svc.Start(ctx, "ada", model.RoundDebug, 1); err != nil {
		t.Fatalf("unlocked round: err = %v", err)
	}
	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 7); !errors.Is(err, questionbank.ErrInvalidSlot) {
		t.Fatalf("bad door: err = %v", err)
	}
}

func TestQuizRoundQueuesResult(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	_, _ = f.games.Start(ctx)

	view, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1)
	if err != nil {
		t.Fatal(err)
	}
	if view.State != progress.StateNotStarted || len(view.Questions) != 5 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := f.svc.Begin("ada"); err != nil {
		t.Fatal(err)
	}

	bank, _ := questionbank.Defaults()
	qs, _ := bank.Slot(model.RoundQuiz, 1)
	answers, _ := questionbank.CorrectAnswers(qs)
	for i, a := range answers {
		option := a
		if i == 0 {
			option = a + 1
		}
		if _, err := f.svc.Answer("ada", i, option); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := f.svc.Submit("ada")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Score != 80 || !sum.Passed || sum.Trigger != progress.TriggerManual {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if _, err := f.svc.Submit("ada"); !errors.Is(err, progress.ErrAlreadySubmitted) {
		t.Fatalf("second submit: err = %v", err)
	}

	queued := f.queued(t)
	if len(queued) != 1 || queued[0].Round != 1 || queued[0].Score != 80 || !queued[0].Passed || queued[0].ParticipantID != "ada" {
		t.Fatalf("queued = %+v", queued)
	}
}

// answerQuiz answers every quiz question of door 1, the first n correctly.
func answerQuiz(t *testing.T, f *roundFixture, n int) {
	t.Helper()
	bank, _ := questionbank.Defaults()
	qs, _ := bank.Slot(model.RoundQuiz, 1)
	answers, _ := questionbank.CorrectAnswers(qs)
	for i, a := range answers {
		option := a
		if i >= n {
			option = a + 1
		}
		if _, err := f.svc.Answer("ada", i, option); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFailedQuizKeepsNextRoundLocked(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	_, _ = f.games.Start(ctx)
	_, _ = f.games.SetActiveRound(ctx, 2)

	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1); err != nil {
		t.Fatal(err)
	}
	_, _ = f.svc.Begin("ada")
	answerQuiz(t, f, 2)

	sum, err := f.svc.Submit("ada")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Passed || sum.Score != 40 {
		t.Fatalf("summary = %+v", sum)
	}

	if queued := f.queued(t); len(queued) != 0 {
		t.Fatalf("failed round queued an advance: %+v", queued)
	}
	recorded := f.recorded(t)
	if len(recorded) != 1 || recorded[0].Passed || recorded[0].Score != 40 {
		t.Fatalf("activity = %+v", recorded)
	}
	if _, err := f.svc.Start(ctx, "ada", model.RoundDebug, 1); !errors.Is(err, ErrRoundLocked) {
		t.Fatalf("debug after failed quiz: err = %v", err)
	}
}

func TestTimeUpSubmitsAndNotifiesWatchers(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	f.svc.Durations = map[model.RoundType]time.Duration{model.RoundQuiz: 30 * time.Millisecond}
	_, _ = f.games.Start(ctx)

	events, stop := f.svc.Watch("ada")
	defer stop()

	_, _ = f.svc.Start(ctx, "ada", model.RoundQuiz, 1)
	_, _ = f.svc.Begin("ada")

	var submitted *progress.Summary
	deadline := time.After(2 * time.Second)
	for submitted == nil {
		select {
		case ev := <-events:
			if ev.Type == progress.EventSubmitted {
				submitted = ev.Summary
			}
		case <-deadline:
			t.Fatal("no submission event")
		}
	}
	if submitted.Trigger != progress.TriggerTimeUp || submitted.Score != 0 {
		t.Fatalf("summary = %+v", submitted)
	}
	eventually(t, func() bool { return len(f.recorded(t)) == 1 })
	if queued := f.queued(t); len(queued) != 0 {
		t.Fatalf("empty submission advanced progress: %+v", queued)
	}
}

func TestSubmitFallsBackToDirectWrite(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	_, _ = f.games.Start(ctx)

	_, _ = f.svc.Start(ctx, "ada", model.RoundQuiz, 1)
	_, _ = f.svc.Begin("ada")
	answerQuiz(t, f, 5)

	f.mr.SetError("LOADING redis is unavailable")
	if _, err := f.svc.Submit("ada"); err != nil {
		t.Fatalf("submit must succeed locally: %v", err)
	}
	f.mr.SetError("")

	if got := f.people.rows["ada"].RoundsCompleted; got != 1 {
		t.Fatalf("rounds_completed = %d, want 1", got)
	}
}

func TestCodeRoundRunsTests(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	_, _ = f.games.Start(ctx)
	_, _ = f.games.SetActiveRound(ctx, 3)
	f.people.rows["ada"].RoundsCompleted = 2

	if _, err := f.svc.Start(ctx, "ada", model.RoundCoding, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SelectLanguage("ada", "cobol"); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("bad language: err = %v", err)
	}
	_, _ = f.svc.SelectLanguage("ada", model.LangPython)
	_, _ = f.svc.Begin("ada")

	if _, err := f.svc.Answer("ada", 0, 0); !errors.Is(err, progress.ErrWrongRoundType) {
		t.Fatalf("answer in coding round: err = %v", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	if _, err := f.svc.RunTests(reqCtx, "ada", 0, "print(1)"); err != nil {
		t.Fatal(err)
	}
	cancel()

	eventually(t, func() bool {
		v, _ := f.svc.Current("ada")
		return v.Questions[0].Score == 100
	})

	sum, _ := f.svc.Submit("ada")
	if sum.Score != 100 || sum.RoundNumber != 3 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestStartRefusedWhileAttemptRunning(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	_, _ = f.games.Start(ctx)

	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 2); err != nil {
		t.Fatalf("restart before begin: err = %v", err)
	}
	_, _ = f.svc.Begin("ada")

	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1); !errors.Is(err, ErrAttemptRunning) {
		t.Fatalf("restart while running: err = %v", err)
	}
	view, err := f.svc.Current("ada")
	if err != nil || view.Door != 2 || view.State != progress.StateInProgress {
		t.Fatalf("running attempt replaced: %+v, err = %v", view, err)
	}

	_, _ = f.svc.Submit("ada")
	if _, err := f.svc.Start(ctx, "ada", model.RoundQuiz, 1); err != nil {
		t.Fatalf("start after submit: err = %v", err)
	}
}

func TestNoAttempt(t *testing.T) {
	f := newRoundFixture(t)
	if _, err := f.svc.Current("ghost"); !errors.Is(err, ErrNoActiveAttempt) {
		t.Fatalf("err = %v", err)
	}
}
