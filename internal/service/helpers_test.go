package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

var nopLog = zerolog.Nop()

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// ─── plain-text verifier ─────────────────────────────────────────────────

type plainVerifier struct{}

func (plainVerifier) Hash(secret string) (string, error) { return "hash:" + secret, nil }
func (plainVerifier) Verify(hash, secret string) bool { return hash == "hash:"+secret }

// ─── in-memory participant store ─────────────────────────────────────────

type memParticipants struct {
	mu   sync.Mutex
	rows map[string]*model.Participant
	err  error
}

func newMemParticipants() *memParticipants {
	return &memParticipants{rows: make(map[string]*model.Participant)}
}

func (m *memParticipants) GetByKey(_ context.Context, key string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.rows[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *p
	return &c, nil
}

func (m *memParticipants) GetByEmail(_ context.Context, email string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.Email == email {
			c := *p
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memParticipants) Create(_ context.Context, p *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; ok {
		return repository.ErrDuplicateParticipant
	}
	c := *p
	m.rows[p.ID] = &c
	return nil
}

func (m *memParticipants) SetStatus(_ context.Context, key string, status model.ParticipantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[key]; ok {
		p.Status = status
	}
	return nil
}

func (m *memParticipants) Update(_ context.Context, p *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	cur.Name, cur.Score, cur.RoundsCompleted, cur.Status = p.Name, p.Score, p.RoundsCompleted, p.Status
	return nil
}

func (m *memParticipants) UpdatePassword(_ context.Context, key, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[key]; ok {
		p.PasswordHash = hash
	}
	return nil
}

func (m *memParticipants) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.rows, key)
	return nil
}

func (m *memParticipants) Advance(_ context.Context, u repository.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[u.ParticipantID]
	if !ok {
		return pgx.ErrNoRows
	}
	if u.Round > p.RoundsCompleted {
		p.RoundsCompleted = u.Round
	}
	p.Score = u.Score
	return nil
}

func (m *memParticipants) Leaderboard(context.Context, int) ([]model.LeaderboardEntry, error) {
	return nil, nil
}

func (m *memParticipants) List(context.Context) ([]model.Participant, error) { return nil, nil }

// ─── in-memory game session store ────────────────────────────────────────

type memGame struct {
	mu  sync.Mutex
	g   model.GameSession
	err error
}

func (m *memGame) apply(f func(g *model.GameSession)) (*model.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	f(&m.g)
	m.g.Version++
	m.g.UpdatedAt = time.Now()
	c := m.g
	return &c, nil
}

func (m *memGame) Get(context.Context) (*model.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := m.g
	if c.ActiveRound == 0 {
		c.ActiveRound = 1
	}
	return &c, nil
}

func (m *memGame) Start(context.Context) (*model.GameSession, error) {
	return m.apply(func(g *model.GameSession) { g.Started, g.ActiveRound = true, 1 })
}

func (m *memGame) Stop(context.Context) (*model.GameSession, error) {
	return m.apply(func(g *model.GameSession) { g.Started = false })
}

func (m *memGame) SetActiveRound(_ context.Context, round int) (*model.GameSession, error) {
	return m.apply(func(g *model.GameSession) { g.ActiveRound = round })
}

func (m *memGame) SetBroadcast(_ context.Context, msg string) (*model.GameSession, error) {
	return m.apply(func(g *model.GameSession) { g.BroadcastMessage = msg })
}

// ─── in-memory question slots ────────────────────────────────────────────

type memSlots struct {
	mu    sync.Mutex
	slots map[string][]json.RawMessage
	gets  int
}

func newMemSlots() *memSlots { return &memSlots{slots: make(map[string][]json.RawMessage)} }

func (m *memSlots) Get(_ context.Context, t model.RoundType, door int) (*model.QuestionSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	qs, ok := m.slots[model.SlotKey(t, door)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &model.QuestionSlot{Type: t, Door: door, Questions: qs}, nil
}

func (m *memSlots) Save(_ context.Context, t model.RoundType, door int, qs []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[model.SlotKey(t, door)] = qs
	return nil
}

func (m *memSlots) InsertIfAbsent(_ context.Context, t model.RoundType, door int, qs []json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := model.SlotKey(t, door)
	if _, ok := m.slots[key]; ok {
		return false, nil
	}
	m.slots[key] = qs
	return true, nil
}
