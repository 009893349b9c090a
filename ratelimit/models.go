// Package ratelimit implements fixed-window usage counters for award quotas.
//
// Windows are persisted in the same transactional store as balances, keyed
// by (actor, action), so that check-and-consume commits atomically with the
// transfer it gates. Two concurrent awards can therefore never both pass
// the check against a stale count. Window state is derived, not durable
// truth: losing it risks under-enforcement until the next window boundary,
// never balance corruption.
package ratelimit

import (
	"time"

	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/types"
)

// ActionAward is the action key for the global per-actor daily award cap.
const ActionAward = "award"

// CategoryAction returns the action key for a per-category award cap.
func CategoryAction(c types.Category) string {
	return ActionAward + ":" + string(c)
}

// Window is a fixed counting window for one (actor, action) pair.
// The window starts at first use and resets when its duration elapses.
type Window struct {
	types.Entity
	ID          id.RateWindowID `json:"id"`
	ActorID     string          `json:"actor_id"`
	Action      string          `json:"action"`
	WindowStart time.Time       `json:"window_start"`
	Count       int64           `json:"count"`
}

// NewWindow opens a fresh window for an actor and action starting at now.
func NewWindow(actorID, action string, now time.Time) *Window {
	return &Window{
		Entity:      types.NewEntity(),
		ID:          id.NewRateWindowID(),
		ActorID:     actorID,
		Action:      action,
		WindowStart: now,
	}
}

// Decision is the outcome of a check-and-consume evaluation.
type Decision struct {
	Allowed bool
	Limit   int64
	Used    int64     // count in window before this request
	Cost    int64
	ResetAt time.Time // when the current window elapses
}

// CheckAndConsume evaluates cost against limit within the window and, on
// allow, consumes it in the same step — there is no separate confirm phase.
// An elapsed window is reset to a fresh one starting at now. The mutation
// only becomes effective when the enclosing store transaction commits.
func (w *Window) CheckAndConsume(now time.Time, cost, limit int64, duration time.Duration) Decision {
	if !now.Before(w.WindowStart.Add(duration)) {
		w.WindowStart = now
		w.Count = 0
	}

	d := Decision{
		Limit:   limit,
		Used:    w.Count,
		Cost:    cost,
		ResetAt: w.WindowStart.Add(duration),
	}

	if w.Count+cost > limit {
		return d
	}

	w.Count += cost
	w.Touch()
	d.Allowed = true
	return d
}
