// Package progress scores round attempts and tracks participant advancement.
package progress

import (
	"math"
	"time"

	"github.com/stemsi/paradox-backend/internal/model"
)

const (
	// PassThreshold is the minimum percentage that passes any round.
	PassThreshold = 50
	// HintPenalty is subtracted once per distinct question whose hint was revealed.
	HintPenalty = 10
)

// Result is the outcome of one scored item.
type Result struct {
	Passed bool `json:"passed"`
}

// Score returns round(100*passed/total) - penalty, clamped to [0, 100].
func Score(results []Result, penalty int) int {
	if len(results) == 0 {
		return 0
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	pct := int(math.Round(100 * float64(passed) / float64(len(results))))
	return clamp(pct - penalty)
}

// Average returns the rounded mean of per-item percentages minus penalty,
// clamped to [0, 100]. Items that were never scored count as 0.
func Average(percents []int, penalty int) int {
	if len(percents) == 0 {
		return 0
	}
	sum := 0
	for _, p := range percents {
		sum += clamp(p)
	}
	mean := int(math.Round(float64(sum) / float64(len(percents))))
	return clamp(mean - penalty)
}

// Percent returns round(100*passed/total), or 0 for an empty total.
func Percent(passed, total int) int {
	if total <= 0 {
		return 0
	}
	return clamp(int(math.Round(100 * float64(passed) / float64(total))))
}

// Passed reports whether score meets the pass threshold.
func Passed(score int) bool {
	return score >= PassThreshold
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// HintTracker records which questions had their hint revealed. Toggling the
// same hint repeatedly counts once.
type HintTracker struct {
	used map[int]struct{}
}

// Reveal marks question q as hinted and reports whether this was its first reveal.
func (h *HintTracker) Reveal(q int) bool {
	if h.used == nil {
		h.used = make(map[int]struct{})
	}
	if _, ok := h.used[q]; ok {
		return false
	}
	h.used[q] = struct{}{}
	return true
}

// Revealed reports whether q's hint has been revealed.
func (h *HintTracker) Revealed(q int) bool {
	_, ok := h.used[q]
	return ok
}

// Count is the number of distinct questions hinted.
func (h *HintTracker) Count() int { return len(h.used) }

// Penalty is the total percentage-point deduction.
func (h *HintTracker) Penalty() int { return len(h.used) * HintPenalty }

// Advance applies a completed round to an account. RoundsCompleted never
// decreases; Score is overwritten with the latest round's percentage.
func Advance(p model.Participant, round, score int, now time.Time) model.Participant {
	if round > p.RoundsCompleted {
		p.RoundsCompleted = round
	}
	if p.RoundsCompleted > model.MaxRounds {
		p.RoundsCompleted = model.MaxRounds
	}
	p.Score = clamp(score)
	p.LastActive = now
	return p
}
