package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/questionbank"
)

func newQuestionService(t *testing.T, store QuestionSlotStore) *QuestionService {
	t.Helper()
	_, rdb := newTestRedis(t)
	bank, err := questionbank.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	return NewQuestionService(store, rdb, bank, nopLog)
}

func TestGetFallsBackToBundled(t *testing.T) {
	svc := newQuestionService(t, newMemSlots())
	slot, err := svc.Get(context.Background(), model.RoundQuiz, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !slot.Bundled || len(slot.Questions) == 0 {
		t.Fatalf("expected bundled questions, got %+v", slot)
	}
}

func TestSaveThenGetUsesStoreAndCache(t *testing.T) {
	ctx := context.Background()
	store := newMemSlots()
	svc := newQuestionService(t, store)

	qs := []json.RawMessage{json.RawMessage(`{"id":1,"question":"2+2?","options":["3","4"],"correctAnswer":1}`)}
	if _, err := svc.Save(ctx, model.RoundQuiz, 1, qs); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		slot, err := svc.Get(ctx, model.RoundQuiz, 1)
		if err != nil {
			t.Fatal(err)
		}
		if slot.Bundled || len(slot.Questions) != 1 {
			t.Fatalf("unexpected slot: %+v", slot)
		}
	}
	if store.gets != 1 {
		t.Fatalf("store read %d times, want 1 (second read cached)", store.gets)
	}
}

func TestSaveValidatesBeforeWrite(t *testing.T) {
	store := newMemSlots()
	svc := newQuestionService(t, store)
	bad := []json.RawMessage{json.RawMessage(`{"id":1,"question":"","options":[],"correctAnswer":0}`)}

	if _, err := svc.Save(context.Background(), model.RoundQuiz, 1, bad); !errors.Is(err, questionbank.ErrInvalidQuestion) {
		t.Fatalf("Save() error = %v", err)
	}
	if len(store.slots) != 0 {
		t.Fatal("invalid slot was written")
	}
	if _, err := svc.Save(context.Background(), model.RoundQuiz, 9, bad); !errors.Is(err, questionbank.ErrInvalidSlot) {
		t.Fatalf("Save(door 9) error = %v", err)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := newMemSlots()
	_ = store.Save(ctx, model.RoundDebug, 3, []json.RawMessage{json.RawMessage(`{}`)})
	svc := newQuestionService(t, store)

	n, err := svc.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Fatalf("seeded %d slots, want 8", n)
	}
	if n, _ := svc.SeedIfEmpty(ctx); n != 0 {
		t.Fatalf("second seed wrote %d slots", n)
	}
}

func TestGetAllForAdminOrder(t *testing.T) {
	svc := newQuestionService(t, newMemSlots())
	slots, err := svc.GetAllForAdmin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 9 {
		t.Fatalf("len = %d", len(slots))
	}
	if slots[0].Type != model.RoundQuiz || slots[0].Door != 1 || slots[8].Type != model.RoundCoding || slots[8].Door != 3 {
		t.Fatalf("unexpected order: first=%s/%d last=%s/%d", slots[0].Type, slots[0].Door, slots[8].Type, slots[8].Door)
	}
}
