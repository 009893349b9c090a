package ratelimit

import (
	"context"
)

// Store is the persistence contract for rate-limit windows.
type Store interface {
	// Get returns the window for an (actor, action) pair, or (nil, nil)
	// when none exists yet. Absence of a counter is not an error.
	Get(ctx context.Context, actorID, action string) (*Window, error)

	// Put upserts a window keyed by (actor, action).
	Put(ctx context.Context, w *Window) error
}
