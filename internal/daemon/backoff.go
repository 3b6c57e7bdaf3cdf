package daemon

import (
	gosync "sync"
	"time"
)

// backoffCap bounds both the exponent (2^6 = 64s before clamping) and the
// window itself.
const (
	maxBackoffFailures = 6
	maxBackoffWindow   = 60 * time.Second
)

// Backoff tracks consecutive sync failures and the quiet window they earn.
// After n failures the window is min(2^n, 60) seconds, measured from the
// last failure. Safe for concurrent use.
type Backoff struct {
	mu       gosync.Mutex
	failures int
	lastFail time.Time

	// now is swapped out in tests.
	now func() time.Time
}

// NewBackoff returns a zeroed backoff tracker.
func NewBackoff() *Backoff {
	return &Backoff{now: time.Now}
}

// Failure records one more consecutive failure.
func (b *Backoff) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < maxBackoffFailures {
		b.failures++
	}
	b.lastFail = b.now()
}

// Reset clears the failure streak after a success.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.lastFail = time.Time{}
}

// Failures returns the current consecutive-failure count.
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Window returns the quiet period earned by the current streak.
func (b *Backoff) Window() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.window()
}

// Ready reports whether enough time has passed since the last failure for
// another attempt.
func (b *Backoff) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures == 0 {
		return true
	}
	return b.now().Sub(b.lastFail) >= b.window()
}

func (b *Backoff) window() time.Duration {
	if b.failures == 0 {
		return 0
	}
	w := time.Duration(1<<uint(b.failures)) * time.Second
	if w > maxBackoffWindow {
		return maxBackoffWindow
	}
	return w
}
