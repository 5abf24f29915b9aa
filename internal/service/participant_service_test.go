package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/paradox-backend/internal/model"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemParticipants()
	svc := NewParticipantService(store, plainVerifier{}, nopLog)

	p, err := svc.Register(ctx, model.RegisterRequest{Name: "Ada", Email: " Ada.L@Example.com ", Password: "secret"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if p.ID != "ada_l_example_com" || p.Email != "ada.l@example.com" {
		t.Fatalf("unexpected identity: id=%q email=%q", p.ID, p.Email)
	}
	if p.Score != 0 || p.RoundsCompleted != 0 || p.Status != model.ParticipantActive {
		t.Fatalf("unexpected initial progress: %+v", p)
	}

	if _, err := svc.Register(ctx, model.RegisterRequest{Name: "Ada", Email: "ada.l@example.com", Password: "x"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"ok", "ADA.L@example.com", "secret", nil},
		{"wrong password", "ada.l@example.com", "nope", ErrIncorrectPassword},
		{"unknown", "bob@example.com", "secret", ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginFallsBackToEmailColumn(t *testing.T) {
	ctx := context.Background()
	store := newMemParticipants()
	store.rows["legacy-id"] = &model.Participant{ID: "legacy-id", Email: "old@example.com", PasswordHash: "hash:pw"}
	svc := NewParticipantService(store, plainVerifier{}, nopLog)

	p, err := svc.Login(ctx, "old@example.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if p.ID != "legacy-id" {
		t.Fatalf("ID = %q", p.ID)
	}
	if store.rows["legacy-id"].Status != model.ParticipantActive {
		t.Fatal("status not set to active")
	}
}

func TestLoginRejectsKeyCollision(t *testing.T) {
	ctx := context.Background()
	store := newMemParticipants()
	svc := NewParticipantService(store, plainVerifier{}, nopLog)
	if _, err := svc.Register(ctx, model.RegisterRequest{Name: "Ada", Email: "a.b@x.com", Password: "secret"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "a_b@x.com", "secret"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Login(colliding email) error = %v, want %v", err, ErrAccountNotFound)
	}
	if _, err := svc.Login(ctx, "A.B@x.com", "secret"); err != nil {
		t.Fatalf("Login(owner) error = %v", err)
	}
}

func TestMarkInactiveIsBestEffort(t *testing.T) {
	store := newMemParticipants()
	svc := NewParticipantService(store, plainVerifier{}, nopLog)
	svc.MarkInactive(context.Background(), "missing")
}

func TestModerationMayLowerRounds(t *testing.T) {
	ctx := context.Background()
	store := newMemParticipants()
	store.rows["a"] = &model.Participant{ID: "a", Name: "A", RoundsCompleted: 3, Score: 90}
	svc := NewParticipantService(store, plainVerifier{}, nopLog)

	p, err := svc.Update(ctx, "a", model.UpdateParticipantRequest{Name: "A", RoundsCompleted: 1, Score: 10, Status: model.ParticipantInactive})
	if err != nil {
		t.Fatal(err)
	}
	if p.RoundsCompleted != 1 || store.rows["a"].RoundsCompleted != 1 {
		t.Fatalf("rounds not lowered: %+v", store.rows["a"])
	}

	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Delete() error = %v", err)
	}
}
