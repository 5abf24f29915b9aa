package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/guard"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newAuth(t *testing.T) (*service.AuthService, *redis.Client) {
	t.Helper()
	_, rdb := newRedis(t)
	cfg := &config.Config{
		JWTSecret:             "test-secret",
		ParticipantSessionTTL: time.Hour,
		AdminSessionTTL:       time.Hour,
		BcryptCost:            4,
	}
	return service.NewAuthService(cfg, rdb), rdb
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code response.ErrCode `json:"code"`
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

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestRequireParticipantJWT(t *testing.T) {
	auth, _ := newAuth(t)
	participantToken, err := auth.IssueParticipantToken(context.Background(), "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}
	adminToken, _, err := auth.IssueAdminToken("root", model.AdminRoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/p", RequireParticipantJWT(auth), okHandler)

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"missing token", "", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"admin token", "Bearer " + adminToken, "", http.StatusForbidden, response.ErrParticipantAccessOnly},
		{"participant header", "Bearer " + participantToken, "", http.StatusOK, ""},
		{"participant query", "", participantToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/p"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr != "" {
				if env := decode(t, w); env.Error == nil || env.Error.Code != tt.wantErr {
					t.Fatalf("error = %+v, want %s", env.Error, tt.wantErr)
				}
			}
		})
	}
}

func TestCheckParticipantSessionAfterRevoke(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	token, err := auth.IssueParticipantToken(ctx, "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/p", RequireParticipantJWT(auth), CheckParticipantSession(auth, zerolog.Nop()), okHandler)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := call(); w.Code != http.StatusOK {
		t.Fatalf("live session status = %d", w.Code)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.RevokeParticipantSession(ctx, claims.ID); err != nil {
		t.Fatal(err)
	}

	w := call()
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session status = %d", w.Code)
	}
	if env := decode(t, w); env.Error.Code != response.ErrSessionInvalidated {
		t.Fatalf("code = %s", env.Error.Code)
	}
}

func TestCheckParticipantSessionStoreDown(t *testing.T) {
	mr, rdb := newRedis(t)
	auth := service.NewAuthService(&config.Config{
		JWTSecret:             "test-secret",
		ParticipantSessionTTL: time.Hour,
		BcryptCost:            4,
	}, rdb)
	token, err := auth.IssueParticipantToken(context.Background(), "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/p", RequireParticipantJWT(auth), CheckParticipantSession(auth, zerolog.Nop()), okHandler)

	mr.SetError("LOADING redis is unavailable")
	defer mr.SetError("")
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 while the store is down", w.Code)
	}
}

func TestOptionalJWTDropsEndedSession(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	token, err := auth.IssueParticipantToken(ctx, "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/o", OptionalJWT(auth), func(c *gin.Context) {
		if GetClaims(c) != nil {
			c.String(http.StatusOK, "signed-in")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	call := func() string {
		req := httptest.NewRequest(http.MethodGet, "/o", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Body.String()
	}

	if got := call(); got != "signed-in" {
		t.Fatalf("live session = %q", got)
	}
	claims, _ := auth.ValidateToken(token)
	if err := auth.RevokeParticipantSession(ctx, claims.ID); err != nil {
		t.Fatal(err)
	}
	if got := call(); got != "anonymous" {
		t.Fatalf("ended session = %q", got)
	}
}

func TestRequireAdminRole(t *testing.T) {
	auth, _ := newAuth(t)
	r := gin.New()
	r.GET("/a", RequireAdminJWT(auth), RequireAdminRole(model.AdminRoleAdmin), okHandler)

	for _, tt := range []struct {
		role model.AdminRole
		want int
	}{
		{model.AdminRoleAdmin, http.StatusOK},
		{model.AdminRoleUser, http.StatusForbidden},
	} {
		token, _, err := auth.IssueAdminToken("someone", tt.role)
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/a", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("role %s: status = %d, want %d", tt.role, w.Code, tt.want)
		}
	}
}

type stubGame struct{ g *model.GameSession }

func (s stubGame) Current(context.Context) *model.GameSession { return s.g }

type stubGate struct {
	required bool
	passes   map[string]bool
}

func (s stubGate) EntryPasswordRequired(context.Context) bool { return s.required }

func (s stubGate) HasEntryPass(_ context.Context, sessionID string) bool {
	return !s.required || s.passes[sessionID]
}

func TestRequireRoute(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	token, err := auth.IssueParticipantToken(ctx, "ada_example_com")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}

	started := &model.GameSession{Started: true, ActiveRound: 1}
	tests := []struct {
		name       string
		access     Access
		seb        bool
		wantStatus int
		wantCode   response.ErrCode
		wantTarget guard.Screen
	}{
		{
			name:       "plain browser",
			access:     Access{Game: stubGame{started}, Gate: stubGate{}, RequireLockdown: true},
			wantStatus: http.StatusForbidden,
			wantCode:   response.ErrLockdownRequired,
			wantTarget: guard.ScreenLockdownRequired,
		},
		{
			name:       "lockdown disabled",
			access:     Access{Game: stubGame{started}, Gate: stubGate{}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "game not started",
			access:     Access{Game: stubGame{&model.GameSession{}}, Gate: stubGate{}, RequireLockdown: true},
			seb:        true,
			wantStatus: http.StatusForbidden,
			wantCode:   response.ErrGameNotStarted,
			wantTarget: guard.ScreenWaitingRoom,
		},
		{
			name:       "unknown game state",
			access:     Access{Game: stubGame{nil}, Gate: stubGate{}, RequireLockdown: true},
			seb:        true,
			wantStatus: http.StatusForbidden,
			wantTarget: guard.ScreenWaitingRoom,
			wantCode:   response.ErrGameNotStarted,
		},
		{
			name:       "entry password pending",
			access:     Access{Game: stubGame{started}, Gate: stubGate{required: true}, RequireLockdown: true},
			seb:        true,
			wantStatus: http.StatusForbidden,
			wantCode:   response.ErrEntryGateRequired,
			wantTarget: guard.ScreenEntryGate,
		},
		{
			name: "entry password cleared",
			access: Access{
				Game:            stubGame{started},
				Gate:            stubGate{required: true, passes: map[string]bool{claims.ID: true}},
				RequireLockdown: true,
			},
			seb:        true,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/home", RequireParticipantJWT(auth), RequireRoute(&tt.access, guard.RouteHome), okHandler)

			req := httptest.NewRequest(http.MethodGet, "/home", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			if tt.seb {
				req.Header.Set("User-Agent", "Mozilla/5.0 SEB/3.5")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				return
			}
			env := decode(t, w)
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", env.Error.Code, tt.wantCode)
			}
			var d guard.Decision
			if err := json.Unmarshal(env.Data, &d); err != nil {
				t.Fatal(err)
			}
			if d.Target != tt.wantTarget {
				t.Errorf("target = %s, want %s", d.Target, tt.wantTarget)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	mr, rdb := newRedis(t)
	rl := NewRateLimiter(rdb, "login", 2, time.Minute, zerolog.Nop())

	r := gin.New()
	r.POST("/login", rl.Middleware(), okHandler)
	call := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		return w.Code
	}

	for i := range 2 {
		if code := call(); code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, code)
		}
	}
	if code := call(); code != http.StatusTooManyRequests {
		t.Fatalf("over limit: status = %d", code)
	}

	mr.SetError("down")
	if code := call(); code != http.StatusOK {
		t.Fatalf("redis down: status = %d, want pass-through", code)
	}
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("terminal paradox ", 200)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })

	t.Run("large body compressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/big", nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Content-Encoding"); got != "br" {
			t.Fatalf("Content-Encoding = %q", got)
		}
		body, err := io.ReadAll(brotli.NewReader(w.Body))
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != big {
			t.Fatal("round-tripped body differs")
		}
	})

	t.Run("small body plain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/small", nil)
		req.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Content-Encoding"); got != "" {
			t.Fatalf("Content-Encoding = %q", got)
		}
		if w.Body.String() != "tiny" {
			t.Fatalf("body = %q", w.Body.String())
		}
	})
}
