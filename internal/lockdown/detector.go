// Package lockdown recognises approved exam clients (Safe Exam Browser) and
// renders the client configuration profile handed to them.
package lockdown

import (
	"net/http"
	"strings"
)

// Header names a lockdown client may set. The first is sent by our own
// client script when the browser exposes the SafeExamBrowser global; the
// second is attached by Safe Exam Browser itself.
const (
	HeaderInjectedGlobal = "X-Lockdown-Global"
	HeaderSEBRequestHash = "X-SafeExamBrowser-RequestHash"
	URLFlagParam         = "seb"
)

// vendorMarkers are matched case-insensitively against the user agent.
var vendorMarkers = []string{"seb/", "sebcopy", "sebbrowser", "safeexambrowser", "seb"}

// Signals are the environment facts the detector decides on.
type Signals struct {
	InjectedGlobalPresent bool
	UserAgent             string
	URLFlagPresent        bool
}

// IsApprovedClient reports whether the signals come from an approved exam
// client. It has no side effects.
func IsApprovedClient(s Signals) bool {
	if s.InjectedGlobalPresent || s.URLFlagPresent {
		return true
	}
	ua := strings.ToLower(s.UserAgent)
	for _, m := range vendorMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// SignalsFromRequest extracts detector signals from an HTTP request.
func SignalsFromRequest(r *http.Request) Signals {
	return Signals{
		InjectedGlobalPresent: strings.EqualFold(r.Header.Get(HeaderInjectedGlobal), "true") ||
			r.Header.Get(HeaderSEBRequestHash) != "",
		UserAgent:      r.UserAgent(),
		URLFlagPresent: r.URL.Query().Get(URLFlagParam) == "true",
	}
}
