package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/guard"
	"github.com/stemsi/paradox-backend/internal/lockdown"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

// GameReader exposes the last known game snapshot.
type GameReader interface {
	Current(ctx context.Context) *model.GameSession
}

// EntryGate answers the entry-gate questions of the guard chain.
type EntryGate interface {
	EntryPasswordRequired(ctx context.Context) bool
	HasEntryPass(ctx context.Context, sessionID string) bool
}

// Access gathers the guard inputs for a request.
type Access struct {
	Game GameReader
	Gate EntryGate
	// RequireLockdown disables the lockdown check when false, for local
	// development outside the exam browser.
	RequireLockdown bool
}

// GuardContext builds the guard input from the request's claims, the game
// snapshot, the entry gate and the client signals.
func (a *Access) GuardContext(c *gin.Context) guard.Context {
	ctx := c.Request.Context()
	gc := guard.Context{
		Game:           a.Game.Current(ctx),
		ApprovedClient: !a.RequireLockdown || lockdown.IsApprovedClient(lockdown.SignalsFromRequest(c.Request)),
	}

	claims := GetClaims(c)
	switch {
	case claims == nil:
	case claims.TokenType == service.TokenTypeParticipant:
		gc.HasParticipantSession = true
		gc.EntryPasswordRequired = a.Gate.EntryPasswordRequired(ctx)
		if gc.EntryPasswordRequired {
			gc.EntryGatePassed = a.Gate.HasEntryPass(ctx, claims.ID)
		}
	case claims.TokenType == service.TokenTypeAdmin:
		gc.Admin = &guard.AdminSession{Role: claims.Role}
	}
	return gc
}

// RequireRoute evaluates the guard chain for route and aborts with the
// redirect decision when the request may not proceed.
func RequireRoute(a *Access, route guard.RouteClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.Evaluate(route, a.GuardContext(c))
		if decision.Allowed() {
			c.Next()
			return
		}
		response.AbortFailWithData(c, http.StatusForbidden, redirectCode(decision.Target), decision)
	}
}

func redirectCode(target guard.Screen) response.ErrCode {
	switch target {
	case guard.ScreenLogin, guard.ScreenAdminLogin:
		return response.ErrTokenRequired
	case guard.ScreenLockdownRequired:
		return response.ErrLockdownRequired
	case guard.ScreenWaitingRoom:
		return response.ErrGameNotStarted
	case guard.ScreenEntryGate:
		return response.ErrEntryGateRequired
	}
	return response.ErrNavigationBlocked
}

// RequireRoundAccess guards the round APIs.
func RequireRoundAccess(a *Access) gin.HandlerFunc {
	return RequireRoute(a, guard.RouteRound)
}
