package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/guard"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

const sebAgent = "Mozilla/5.0 SEB/3.5"

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newAuth(t *testing.T, rdb *redis.Client) *service.AuthService {
	t.Helper()
	return service.NewAuthService(&config.Config{
		JWTSecret:             "test-secret",
		ParticipantSessionTTL: time.Hour,
		AdminSessionTTL:       time.Hour,
		BcryptCost:            4,
	}, rdb)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    response.ErrCode `json:"code"`
		Message string           `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", sebAgent)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{fmt.Errorf("start: %w", service.ErrRoundLocked), http.StatusForbidden, response.ErrRoundLocked},
		{service.ErrGameNotStarted, http.StatusConflict, response.ErrGameNotStarted},
		{progress.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
		{service.ErrAttemptRunning, http.StatusConflict, response.ErrAttemptState},
		{questionbank.ErrInvalidSlot, http.StatusBadRequest, response.ErrInvalidSlot},
		{service.ErrIncorrectQuitPassword, http.StatusForbidden, response.ErrIncorrectQuitPassword},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := classify(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classify = (%d, %s), want (%d, %s)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestFailFromErrorKeepsQuestionDetail(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		failFromError(c, fmt.Errorf("%w: question 2 has no test cases", questionbank.ErrInvalidQuestion))
	})

	w := do(r, http.MethodGet, "/", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	env := decode(t, w)
	if env.Error.Code != response.ErrInvalidQuestion {
		t.Errorf("code = %s", env.Error.Code)
	}
	if !strings.Contains(env.Error.Message, "question 2") {
		t.Errorf("message %q lost the detail", env.Error.Message)
	}
}

// ─── navigation ─────────────────────────────────────────────────────────

type stubGame struct{ g *model.GameSession }

func (s stubGame) Current(context.Context) *model.GameSession { return s.g }

type stubGate struct{ required bool }

func (s stubGate) EntryPasswordRequired(context.Context) bool { return s.required }
func (stubGate) HasEntryPass(context.Context, string) bool { return false }

func TestNavigate(t *testing.T) {
	rdb := newRedis(t)
	auth := newAuth(t, rdb)
	token, err := auth.IssueParticipantToken(context.Background(), "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}
	adminToken, _, err := auth.IssueAdminToken("root", model.AdminRoleUser)
	if err != nil {
		t.Fatal(err)
	}

	started := &model.GameSession{Started: true, ActiveRound: 1}
	tests := []struct {
		name       string
		token      string
		game       *model.GameSession
		gate       stubGate
		route      string
		wantStatus int
		want       guard.Decision
	}{
		{
			name:       "signed out on home",
			game:       started,
			route:      "home",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Redirect, Target: guard.ScreenLogin},
		},
		{
			name:       "participant on login page",
			token:      token,
			game:       started,
			route:      "public_auth",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Redirect, Target: guard.ScreenHome},
		},
		{
			name:       "participant before start",
			token:      token,
			game:       &model.GameSession{},
			route:      "round",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Redirect, Target: guard.ScreenWaitingRoom},
		},
		{
			name:       "participant needs entry password",
			token:      token,
			game:       started,
			gate:       stubGate{required: true},
			route:      "home",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Redirect, Target: guard.ScreenEntryGate},
		},
		{
			name:       "participant cleared",
			token:      token,
			game:       started,
			route:      "round",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Allow},
		},
		{
			name:       "moderator on admin-only screen",
			token:      adminToken,
			game:       started,
			route:      "admin_only",
			wantStatus: http.StatusOK,
			want:       guard.Decision{Outcome: guard.Redirect, Target: guard.ScreenAdminDashboard},
		},
		{
			name:       "unknown route class",
			token:      token,
			game:       started,
			route:      "settings",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := &middleware.Access{Game: stubGame{tt.game}, Gate: tt.gate, RequireLockdown: true}
			h := NewGameHandler(nil, access, zerolog.Nop(), nil)

			r := gin.New()
			r.POST("/navigation", middleware.OptionalJWT(auth), h.Navigate)

			w := do(r, http.MethodPost, "/navigation", tt.token, `{"route":"`+tt.route+`"}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Decision guard.Decision `json:"decision"`
			}
			if err := json.Unmarshal(decode(t, w).Data, &body); err != nil {
				t.Fatal(err)
			}
			if body.Decision != tt.want {
				t.Errorf("decision = %+v, want %+v", body.Decision, tt.want)
			}
		})
	}
}

func TestNavigateAfterLogout(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)
	auth := newAuth(t, rdb)
	token, err := auth.IssueParticipantToken(ctx, "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.RevokeParticipantSession(ctx, claims.ID); err != nil {
		t.Fatal(err)
	}

	access := &middleware.Access{Game: stubGame{&model.GameSession{}}, Gate: stubGate{}, RequireLockdown: true}
	h := NewGameHandler(nil, access, zerolog.Nop(), nil)
	r := gin.New()
	r.POST("/navigation", middleware.OptionalJWT(auth), h.Navigate)

	w := do(r, http.MethodPost, "/navigation", token, `{"route":"public_auth"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		Decision guard.Decision `json:"decision"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &body); err != nil {
		t.Fatal(err)
	}
	if body.Decision != (guard.Decision{Outcome: guard.Allow}) {
		t.Errorf("decision = %+v, want allow on the login page", body.Decision)
	}
}

// ─── gate ───────────────────────────────────────────────────────────────

type memGate struct {
	mu       sync.Mutex
	settings model.ExamGateSettings
}

func (m *memGate) GetGate(context.Context) (*model.ExamGateSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	return &s, nil
}

func (m *memGate) SaveGate(_ context.Context, s model.ExamGateSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func newGateRouter(t *testing.T, store *memGate) (*gin.Engine, string) {
	t.Helper()
	rdb := newRedis(t)
	auth := newAuth(t, rdb)
	token, err := auth.IssueParticipantToken(context.Background(), "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{PublicBaseURL: "https://paradox.example.com"}
	h := NewGateHandler(service.NewGateService(store, rdb, time.Hour, zerolog.Nop()), cfg)

	r := gin.New()
	p := r.Group("/participant", middleware.RequireParticipantJWT(auth))
	p.GET("/gate", h.GetGateStatus)
	p.POST("/gate/entry", h.SubmitEntry)
	r.GET("/admin/gate/lockdown-profile", h.DownloadLockdownProfile)
	r.PUT("/admin/gate", h.UpdateSettings)
	return r, token
}

func TestGateEntryFlow(t *testing.T) {
	store := &memGate{settings: model.ExamGateSettings{EntryPassword: "open-sesame"}}
	r, token := newGateRouter(t, store)

	status := func() map[string]bool {
		t.Helper()
		w := do(r, http.MethodGet, "/participant/gate", token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("gate status = %d", w.Code)
		}
		var body map[string]bool
		if err := json.Unmarshal(decode(t, w).Data, &body); err != nil {
			t.Fatal(err)
		}
		return body
	}

	if s := status(); !s["entry_password_required"] || s["entry_passed"] {
		t.Fatalf("initial status = %v", s)
	}

	w := do(r, http.MethodPost, "/participant/gate/entry", token, `{"password":"wrong"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong password status = %d", w.Code)
	}
	if code := decode(t, w).Error.Code; code != response.ErrIncorrectGatePassword {
		t.Errorf("code = %s", code)
	}

	w = do(r, http.MethodPost, "/participant/gate/entry", token, `{"password":"open-sesame"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("correct password status = %d (%s)", w.Code, w.Body.String())
	}
	if s := status(); !s["entry_passed"] {
		t.Errorf("entry pass not recorded: %v", s)
	}
}

func TestGateEntryWithoutPassword(t *testing.T) {
	r, token := newGateRouter(t, &memGate{})

	w := do(r, http.MethodPost, "/participant/gate/entry", token, `{"password":""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
}

func TestDownloadLockdownProfile(t *testing.T) {
	store := &memGate{}
	r, _ := newGateRouter(t, store)

	w := do(r, http.MethodPut, "/admin/gate", "", `{"entry_password":"in","quit_password":"let-me-out"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/admin/gate/lockdown-profile", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "terminal-paradox.seb") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	sum := sha256.Sum256([]byte("let-me-out"))
	body := w.Body.String()
	if !strings.Contains(body, hex.EncodeToString(sum[:])) {
		t.Error("profile does not carry the hashed quit password")
	}
	if strings.Contains(body, "let-me-out") {
		t.Error("profile leaks the plain quit password")
	}
	if !strings.Contains(body, "https://paradox.example.com") {
		t.Error("profile does not point at the public URL")
	}
}
