package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestMemoryLimiter_Boundary verifies the quota boundary: the 10th request in
// a window is allowed, the 11th is rejected with a positive retry hint.
func TestMemoryLimiter_Boundary(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(10, time.Minute)

	for i := 0; i < 10; i++ {
		res, err := l.Check(ctx, "svc-a")
		if err != nil {
			t.Fatalf("Check() #%d error = %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("Check() #%d Allowed = false, want true", i+1)
		}
	}

	res, err := l.Check(ctx, "svc-a")
	if err != nil {
		t.Fatalf("Check() #11 error = %v", err)
	}
	if res.Allowed {
		t.Fatal("Check() #11 Allowed = true, want false")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("Check() #11 RetryAfter = %v, want > 0", res.RetryAfter)
	}
}

// TestMemoryLimiter_IndependentIdentifiers verifies that one identifier
// exhausting its quota does not affect another in the same window.
func TestMemoryLimiter_IndependentIdentifiers(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(10, time.Minute)

	for i := 0; i < 11; i++ {
		_, _ = l.Check(ctx, "svc-a")
	}

	res, err := l.Check(ctx, "svc-b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Error("Check() for fresh identifier Allowed = false, want true")
	}
}

// TestMemoryLimiter_WindowSlides verifies that slots free up as old requests
// age out of the window, using a simulated clock.
func TestMemoryLimiter_WindowSlides(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, time.Minute)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if res, _ := l.Check(ctx, "svc-a"); !res.Allowed {
		t.Fatal("first Check() rejected")
	}
	now = now.Add(30 * time.Second)
	if res, _ := l.Check(ctx, "svc-a"); !res.Allowed {
		t.Fatal("second Check() rejected")
	}

	res, _ := l.Check(ctx, "svc-a")
	if res.Allowed {
		t.Fatal("third Check() allowed over quota")
	}
	// Oldest entry is 30s old; it falls out of the window 30s from now.
	if res.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", res.RetryAfter)
	}

	now = now.Add(31 * time.Second)
	if res, _ := l.Check(ctx, "svc-a"); !res.Allowed {
		t.Error("Check() after oldest entry expired rejected, want allowed")
	}
}

// TestRetryAfterSeconds verifies rounding up and the 1s floor.
func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1100 * time.Millisecond, 2},
		{59*time.Second + time.Millisecond, 60},
	}
	for _, tc := range cases {
		if got := RetryAfterSeconds(tc.in); got != tc.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
