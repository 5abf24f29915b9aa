// Package guard decides, for every navigation attempt, whether a client may
// reach a screen or must be redirected elsewhere.
//
// Rules are evaluated top to bottom and the first match wins. Evaluate is a
// pure function of its inputs: it performs no I/O, never fails, and returns
// the same decision for the same context.
package guard

import "github.com/stemsi/paradox-backend/internal/model"

// RouteClass groups screens that share an access policy.
type RouteClass string

const (
	RoutePublicAuth  RouteClass = "public_auth"
	RouteAdminLogin  RouteClass = "admin_login"
	RouteWaitingRoom RouteClass = "waiting_room"
	RouteEntryGate   RouteClass = "entry_gate"
	RouteHome        RouteClass = "home"
	RouteRound       RouteClass = "round"
	RouteAdmin       RouteClass = "admin"
	RouteAdminOnly   RouteClass = "admin_only"
)

// Valid reports whether r is a known route class.
func (r RouteClass) Valid() bool {
	switch r {
	case RoutePublicAuth, RouteAdminLogin, RouteWaitingRoom, RouteEntryGate,
		RouteHome, RouteRound, RouteAdmin, RouteAdminOnly:
		return true
	}
	return false
}

// Screen is a redirect target.
type Screen string

const (
	ScreenLogin            Screen = "login"
	ScreenWaitingRoom      Screen = "waiting_room"
	ScreenHome             Screen = "home"
	ScreenLockdownRequired Screen = "lockdown_required"
	ScreenEntryGate        Screen = "entry_gate"
	ScreenAdminLogin       Screen = "admin_login"
	ScreenAdminDashboard   Screen = "admin_dashboard"
)

// Outcome is either allow or redirect.
type Outcome string

const (
	Allow    Outcome = "allow"
	Redirect Outcome = "redirect"
)

// Decision is the result of evaluating a route.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Target  Screen  `json:"target,omitempty"`
}

// Allowed reports whether the decision lets the navigation through.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

func allow() Decision { return Decision{Outcome: Allow} }
func redirect(to Screen) Decision { return Decision{Outcome: Redirect, Target: to} }

// AdminSession is the part of an admin login the guard needs.
type AdminSession struct {
	Role model.AdminRole
}

// Context bundles everything a decision depends on.
type Context struct {
	HasParticipantSession bool
	Admin                 *AdminSession
	// Game is the current game snapshot; nil when it could not be read.
	Game *model.GameSession
	// EntryGatePassed is the per-session entry pass flag.
	EntryGatePassed bool
	// EntryPasswordRequired is false when no entry password is configured
	// or the configuration could not be read.
	EntryPasswordRequired bool
	ApprovedClient        bool
}

func (c Context) started() bool {
	return c.Game != nil && c.Game.Started
}

func (c Context) entryCleared() bool {
	return c.EntryGatePassed || !c.EntryPasswordRequired
}

// Evaluate returns the decision for a navigation to route.
func Evaluate(route RouteClass, c Context) Decision {
	switch route {
	case RoutePublicAuth:
		return evaluatePublicAuth(c)
	case RouteAdminLogin:
		if c.Admin != nil {
			return redirect(ScreenAdminDashboard)
		}
		return allow()
	case RouteWaitingRoom, RouteEntryGate, RouteHome, RouteRound:
		return evaluateProtected(route, c)
	case RouteAdmin, RouteAdminOnly:
		return evaluateAdmin(route, c)
	}
	// Unknown routes are not protected by this chain.
	return allow()
}

func evaluatePublicAuth(c Context) Decision {
	if c.HasParticipantSession {
		if c.started() {
			return redirect(ScreenHome)
		}
		return redirect(ScreenWaitingRoom)
	}
	if c.Admin != nil {
		return redirect(ScreenAdminDashboard)
	}
	return allow()
}

func evaluateProtected(route RouteClass, c Context) Decision {
	if !c.HasParticipantSession {
		return redirect(ScreenLogin)
	}
	if !c.ApprovedClient {
		return redirect(ScreenLockdownRequired)
	}

	switch route {
	case RouteWaitingRoom:
		if c.started() {
			return redirect(ScreenHome)
		}
		return allow()

	case RouteEntryGate:
		if !c.started() {
			return redirect(ScreenWaitingRoom)
		}
		if c.entryCleared() {
			return redirect(ScreenHome)
		}
		return allow()

	default: // home and round pages
		if !c.started() {
			return redirect(ScreenWaitingRoom)
		}
		if !c.entryCleared() {
			return redirect(ScreenEntryGate)
		}
		return allow()
	}
}

func evaluateAdmin(route RouteClass, c Context) Decision {
	if c.Admin == nil {
		return redirect(ScreenAdminLogin)
	}
	if route == RouteAdminOnly && c.Admin.Role != model.AdminRoleAdmin {
		return redirect(ScreenAdminDashboard)
	}
	return allow()
}
