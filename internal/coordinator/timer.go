package coordinator

import (
	"sync"
	"time"
)

// BufferingTimer is a restartable watchdog implementing TimerControl with a
// time.Timer. onTimeout runs on the timer's goroutine; callbacks that touch
// session state must go through the orchestrator, which serializes them.
type BufferingTimer struct {
	mu        sync.Mutex
	timeout   time.Duration
	onTimeout func()
	timer     *time.Timer
}

// NewBufferingTimer returns a stopped timer that fires onTimeout when
// buffering outlasts the given period.
func NewBufferingTimer(timeout time.Duration, onTimeout func()) *BufferingTimer {
	return &BufferingTimer{timeout: timeout, onTimeout: onTimeout}
}

// Start arms the watchdog, restarting the full period if it was already
// running.
func (t *BufferingTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.timeout, t.fire)
}

// Stop disarms the watchdog. Stopping an idle or already-fired timer is a
// no-op.
func (t *BufferingTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *BufferingTimer) fire() {
	t.mu.Lock()
	t.timer = nil
	cb := t.onTimeout
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
