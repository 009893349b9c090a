package ratelimit

import (
	"testing"
	"time"
)

func TestCheckAndConsume(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	t.Run("allows under limit and consumes", func(t *testing.T) {
		w := NewWindow("teacher-1", ActionAward, base)

		d := w.CheckAndConsume(base, 60, 100, day)
		if !d.Allowed {
			t.Fatal("expected allow")
		}
		if w.Count != 60 {
			t.Errorf("count: got %d, want 60", w.Count)
		}

		d = w.CheckAndConsume(base.Add(time.Hour), 40, 100, day)
		if !d.Allowed {
			t.Fatal("expected allow at exactly the cap")
		}
		if w.Count != 100 {
			t.Errorf("count: got %d, want 100", w.Count)
		}
	})

	t.Run("denies over limit without consuming", func(t *testing.T) {
		w := NewWindow("teacher-1", ActionAward, base)
		w.CheckAndConsume(base, 60, 100, day)

		d := w.CheckAndConsume(base.Add(time.Hour), 50, 100, day)
		if d.Allowed {
			t.Fatal("expected deny")
		}
		if w.Count != 60 {
			t.Errorf("denied request must not consume: count %d", w.Count)
		}
		if d.Used != 60 || d.Cost != 50 || d.Limit != 100 {
			t.Errorf("decision detail: %+v", d)
		}
		if !d.ResetAt.Equal(base.Add(day)) {
			t.Errorf("resetAt: got %v, want %v", d.ResetAt, base.Add(day))
		}
	})

	t.Run("elapsed window resets with new cost", func(t *testing.T) {
		w := NewWindow("teacher-1", ActionAward, base)
		w.CheckAndConsume(base, 100, 100, day)

		later := base.Add(day) // boundary is exclusive of the old window
		d := w.CheckAndConsume(later, 50, 100, day)
		if !d.Allowed {
			t.Fatal("expected allow after window elapsed")
		}
		if w.Count != 50 {
			t.Errorf("count after reset: got %d, want 50", w.Count)
		}
		if !w.WindowStart.Equal(later) {
			t.Errorf("window start not reset: %v", w.WindowStart)
		}
	})

	t.Run("cost larger than limit always denied", func(t *testing.T) {
		w := NewWindow("teacher-1", ActionAward, base)
		if d := w.CheckAndConsume(base, 101, 100, day); d.Allowed {
			t.Fatal("expected deny for cost > limit")
		}
	})
}

func TestCategoryAction(t *testing.T) {
	if got := CategoryAction("peer"); got != "award:peer" {
		t.Errorf("got %q", got)
	}
}
