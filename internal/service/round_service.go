package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"github.com/stemsi/paradox-backend/internal/repository"
)

// Round errors.
var (
	ErrGameNotStarted  = errors.New("game has not started")
	ErrRoundLocked     = errors.New("round is locked")
	ErrNoActiveAttempt = errors.New("no active round attempt")
	ErrInvalidLanguage = errors.New("unsupported language")
	ErrAttemptRunning  = errors.New("a round attempt is still running")
)

const watcherBuffer = 16

// ActivityStore appends round submission records.
type ActivityStore interface {
	Insert(ctx context.Context, a model.RoundActivity) error
}

type liveAttempt struct {
	attempt *progress.Attempt
	round   model.RoundType
	door    int
	answers []int
}

// RoundService runs participants' round attempts. At most one attempt is
// live per participant. Starting a new one tears the previous one down,
// unless its countdown is still running.
// Attempts are held in process memory.
type RoundService struct {
	game         *GameStateService
	participants *ParticipantService
	questions    *QuestionService
	activity     ActivityStore
	judge        progress.Judge
	rdb          *redis.Client
	log          zerolog.Logger

	// Tick and Durations override the countdown step and per-round limits.
	Tick      time.Duration
	Durations map[model.RoundType]time.Duration

	mu        sync.Mutex
	attempts  map[string]*liveAttempt
	watchers  map[string]map[uint64]chan progress.Event
	nextWatch uint64
}

// NewRoundService creates a new RoundService.
func NewRoundService(
	game *GameStateService,
	participants *ParticipantService,
	questions *QuestionService,
	activity ActivityStore,
	judge progress.Judge,
	rdb *redis.Client,
	log zerolog.Logger,
) *RoundService {
	return &RoundService{
		game:         game,
		participants: participants,
		questions:    questions,
		activity:     activity,
		judge:        judge,
		rdb:          rdb,
		log:          log.With().Str("component", "round_service").Logger(),
		Tick:         time.Second,
		attempts:     make(map[string]*liveAttempt),
		watchers:     make(map[string]map[uint64]chan progress.Event),
	}
}

// CheckUnlocked reports whether participantID may enter round t: the game is
// started, t is not past the active round, and the previous round is complete.
func (s *RoundService) CheckUnlocked(ctx context.Context, participantID string, t model.RoundType) error {
	game := s.game.Current(ctx)
	if game == nil || !game.Started {
		return ErrGameNotStarted
	}
	if t.Number() > game.ActiveRound {
		return ErrRoundLocked
	}

	p, err := s.participants.GetByKey(ctx, participantID)
	if err != nil {
		return err
	}
	if p.RoundsCompleted < t.Number()-1 {
		return ErrRoundLocked
	}
	return nil
}

// Start opens a new attempt at (t, door) for participantID. It fails with
// ErrAttemptRunning while an earlier attempt is in progress.
func (s *RoundService) Start(ctx context.Context, participantID string, t model.RoundType, door int) (progress.View, error) {
	if !t.Valid() || !model.ValidDoor(door) {
		return progress.View{}, questionbank.ErrInvalidSlot
	}
	if err := s.CheckUnlocked(ctx, participantID, t); err != nil {
		return progress.View{}, err
	}

	slot, err := s.questions.Get(ctx, t, door)
	if err != nil {
		return progress.View{}, err
	}
	cases, err := questionbank.TestCases(t, slot.Questions)
	if err != nil {
		return progress.View{}, err
	}
	var answers []int
	if t == model.RoundQuiz {
		if answers, err = questionbank.CorrectAnswers(slot.Questions); err != nil {
			return progress.View{}, err
		}
	}

	live := &liveAttempt{round: t, door: door, answers: answers}
	live.attempt = progress.NewAttempt(progress.AttemptConfig{
		Round:     t,
		Door:      door,
		Questions: len(slot.Questions),
		TestCases: cases,
		Duration:  s.Durations[t],
		Tick:      s.Tick,
		Judge:     s.judge,
		OnSubmit: func(sum progress.Summary) {
			s.persist(participantID, sum)
		},
		OnEvent: func(ev progress.Event) {
			s.fanout(participantID, live, ev)
		},
	})

	s.mu.Lock()
	prev, hadPrev := s.attempts[participantID]
	if hadPrev && prev.attempt.State() == progress.StateInProgress {
		s.mu.Unlock()
		live.attempt.Close()
		return progress.View{}, ErrAttemptRunning
	}
	s.attempts[participantID] = live
	s.mu.Unlock()
	if hadPrev {
		prev.attempt.Close()
	}

	s.log.Info().Str("participant_id", participantID).Str("round", string(t)).Int("door", door).Msg("round attempt opened")
	return live.attempt.Snapshot(), nil
}

func (s *RoundService) live(participantID string) (*liveAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.attempts[participantID]
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	return live, nil
}

// Current returns the participant's attempt view.
func (s *RoundService) Current(participantID string) (progress.View, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// SelectLanguage sets the attempt's working language.
func (s *RoundService) SelectLanguage(participantID string, lang model.Language) (progress.View, error) {
	if !model.ValidLanguage(lang) {
		return progress.View{}, ErrInvalidLanguage
	}
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	if err := live.attempt.SelectLanguage(lang); err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// Begin starts the attempt's countdown.
func (s *RoundService) Begin(participantID string) (progress.View, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	if err := live.attempt.Begin(); err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// Answer records a quiz answer, checked against the slot's answer key.
func (s *RoundService) Answer(participantID string, question, option int) (progress.View, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	if question < 0 || question >= len(live.answers) {
		if live.round != model.RoundQuiz {
			return progress.View{}, progress.ErrWrongRoundType
		}
		return progress.View{}, progress.ErrQuestionIndex
	}
	if err := live.attempt.Answer(question, option, option == live.answers[question]); err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// RevealHint marks a debug question's hint as used.
func (s *RoundService) RevealHint(participantID string, question int) (progress.View, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	if _, _, err := live.attempt.RevealHint(question); err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// RunTests judges code for one question in the background. The run outlives
// the calling request.
func (s *RoundService) RunTests(ctx context.Context, participantID string, question int, code string) (progress.View, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.View{}, err
	}
	if err := live.attempt.RunTests(context.WithoutCancel(ctx), question, code); err != nil {
		return progress.View{}, err
	}
	return live.attempt.Snapshot(), nil
}

// Submit ends the attempt on the participant's request.
func (s *RoundService) Submit(participantID string) (progress.Summary, error) {
	live, err := s.live(participantID)
	if err != nil {
		return progress.Summary{}, err
	}
	return live.attempt.Submit(progress.TriggerManual)
}

// Abandon tears down the participant's attempt without submitting.
func (s *RoundService) Abandon(participantID string) {
	s.mu.Lock()
	live, ok := s.attempts[participantID]
	delete(s.attempts, participantID)
	s.mu.Unlock()
	if ok {
		live.attempt.Close()
	}
}

// Shutdown stops every live attempt.
func (s *RoundService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, live := range s.attempts {
		live.attempt.Close()
		delete(s.attempts, id)
	}
}

// Watch streams the participant's attempt events until the returned func is
// called. Slow watchers miss events rather than block the attempt.
func (s *RoundService) Watch(participantID string) (<-chan progress.Event, func()) {
	ch := make(chan progress.Event, watcherBuffer)

	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	if s.watchers[participantID] == nil {
		s.watchers[participantID] = make(map[uint64]chan progress.Event)
	}
	s.watchers[participantID][id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[participantID], id)
			if len(s.watchers[participantID]) == 0 {
				delete(s.watchers, participantID)
			}
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *RoundService) fanout(participantID string, live *liveAttempt, ev progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.attempts[participantID]; !ok || cur != live {
		return
	}
	for _, ch := range s.watchers[participantID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// persist queues the result for the workers, writing directly when the queue
// is unavailable. Every submission is recorded as activity; only a passed
// round advances the participant.
func (s *RoundService) persist(participantID string, sum progress.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := model.RoundResult{
		ParticipantID: participantID,
		RoundType:     sum.Round,
		Door:          sum.Door,
		Round:         sum.RoundNumber,
		Score:         sum.Score,
		HintsUsed:     sum.HintsUsed,
		Passed:        sum.Passed,
		Trigger:       string(sum.Trigger),
		SubmittedAt:   sum.SubmittedAt,
	}
	log := s.log.With().Str("participant_id", participantID).Int("round", result.Round).Int("score", result.Score).Logger()
	log.Info().Str("trigger", result.Trigger).Bool("passed", result.Passed).Msg("round submitted")

	raw, _ := json.Marshal(result)
	pipe := s.rdb.Pipeline()
	if result.Passed {
		pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw)
	}
	pipe.RPush(ctx, config.WorkerKey.PersistActivityQueue, raw)
	_, err := pipe.Exec(ctx)
	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("progress queue unavailable, writing directly")

	if result.Passed {
		if err := s.participants.RecordProgress(ctx, repository.ProgressUpdate{
			ParticipantID: participantID,
			Round:         result.Round,
			Score:         result.Score,
			At:            result.SubmittedAt,
		}); err != nil {
			log.Error().Err(err).Msg("failed to persist round progress")
		}
	}
	if s.activity != nil {
		if err := s.activity.Insert(ctx, model.RoundActivity{
			ParticipantID: participantID,
			RoundType:     result.RoundType,
			Door:          result.Door,
			Score:         result.Score,
			HintsUsed:     result.HintsUsed,
			Trigger:       result.Trigger,
			RecordedAt:    result.SubmittedAt,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to record round activity")
		}
	}
}
