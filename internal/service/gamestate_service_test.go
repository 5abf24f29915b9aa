package service

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/model"
)

func recv(t *testing.T, ch <-chan model.GameSession) model.GameSession {
	t.Helper()
	select {
	case g := <-ch:
		return g
	case <-time.After(2 * time.Second):
		t.Fatal("no game state delivered")
	}
	return model.GameSession{}
}

func TestMutationCachesAndNotifies(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)

	ch, unsubscribe := svc.Subscribe(ctx)
	defer unsubscribe()
	if first := recv(t, ch); first.Started {
		t.Fatalf("initial snapshot should be not started: %+v", first)
	}

	if _, err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if got := recv(t, ch); !got.Started || got.ActiveRound != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	raw, err := mr.Get(config.CacheKey.GameStateKey())
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	var cached model.GameSession
	_ = json.Unmarshal([]byte(raw), &cached)
	if !cached.Started {
		t.Fatalf("cached snapshot = %+v", cached)
	}
}

func TestFailedMutationCommitsNothing(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	store := &memGame{}
	svc := NewGameStateService(store, rdb, time.Minute, nopLog)

	store.err = errors.New("offline")
	if _, err := svc.Start(ctx); err == nil {
		t.Fatal("expected error")
	}
	store.err = nil

	g, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if g.Started {
		t.Fatal("failed start leaked into state")
	}
}

func TestSetActiveRoundValidates(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)
	for _, r := range []int{0, 4} {
		if _, err := svc.SetActiveRound(context.Background(), r); !errors.Is(err, ErrInvalidRound) {
			t.Fatalf("SetActiveRound(%d) error = %v", r, err)
		}
	}
}

func TestDeliverDropsStaleAndKeepsLatest(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)
	svc.deliver(model.GameSession{Version: 5})

	ch, unsubscribe := svc.Subscribe(context.Background())
	defer unsubscribe()
	if g := recv(t, ch); g.Version != 5 {
		t.Fatalf("initial version = %d", g.Version)
	}

	svc.deliver(model.GameSession{Version: 4, Started: true})
	svc.deliver(model.GameSession{Version: 6, ActiveRound: 1})
	svc.deliver(model.GameSession{Version: 7, ActiveRound: 2})
	svc.deliver(model.GameSession{Version: 7, ActiveRound: 3})

	if g := recv(t, ch); g.Version != 7 || g.ActiveRound != 2 {
		t.Fatalf("got %+v, want version 7 round 2", g)
	}
	select {
	case g := <-ch:
		t.Fatalf("unexpected extra delivery: %+v", g)
	default:
	}
}

func TestRemoteChangesArriveThroughPubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mr, rdb := newTestRedis(t)
	store := &memGame{}

	listener := NewGameStateService(store, rdb, time.Minute, nopLog)
	go listener.Run(ctx)
	eventually(t, func() bool {
		return mr.PubSubNumSub(config.CacheKey.GameStateChannel())[config.CacheKey.GameStateChannel()] == 1
	})

	ch, unsubscribe := listener.Subscribe(ctx)
	defer unsubscribe()
	recv(t, ch)

	writer := NewGameStateService(store, rdb, time.Minute, nopLog)
	if _, err := writer.SendBroadcast(ctx, "ten minutes left"); err != nil {
		t.Fatal(err)
	}

	eventually(t, func() bool {
		select {
		case g := <-ch:
			return g.BroadcastMessage == "ten minutes left"
		default:
			return false
		}
	})
}

func TestPollingPicksUpChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, rdb := newTestRedis(t)
	store := &memGame{}
	svc := NewGameStateService(store, rdb, 20*time.Millisecond, nopLog)
	go svc.poll(ctx)

	ch, unsubscribe := svc.Subscribe(ctx)
	defer unsubscribe()
	recv(t, ch)

	// Written behind the service's back, with no cached copy.
	_, _ = store.Start(ctx)
	rdb.Del(ctx, config.CacheKey.GameStateKey())

	eventually(t, func() bool {
		select {
		case g := <-ch:
			return g.Started
		default:
			return false
		}
	})
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := svc.Subscribe(ctx)
	cancel()

	eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	})
}

func TestResubscribeYieldsLastSnapshot(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)

	ch, unsubscribe := svc.Subscribe(ctx)
	recv(t, ch)
	if _, err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	last := recv(t, ch)
	unsubscribe()

	again, unsubscribeAgain := svc.Subscribe(ctx)
	defer unsubscribeAgain()
	if got := recv(t, again); got.Version != last.Version || got.Started != last.Started {
		t.Fatalf("resubscribe got %+v, want %+v", got, last)
	}
	select {
	case g := <-again:
		t.Fatalf("unexpected extra delivery: %+v", g)
	default:
	}
}

func TestUnsubscribeReleasesWatcher(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewGameStateService(&memGame{}, rdb, time.Minute, nopLog)
	svc.deliver(model.GameSession{Version: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	before := runtime.NumGoroutine()
	for range 50 {
		_, unsubscribe := svc.Subscribe(ctx)
		unsubscribe()
	}
	eventually(t, func() bool { return runtime.NumGoroutine() < before+10 })
}
