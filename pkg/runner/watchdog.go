package runner

import (
	"sync"
	"time"
)

type watchState int

const (
	watchRunning watchState = iota
	watchDrained
	watchFired
)

// watchdog races a timer against stream draining. Exactly one of the two
// sides wins the transition out of watchRunning; the mutex makes the
// check-then-act atomic.
type watchdog struct {
	mu    sync.Mutex
	state watchState
	timer *time.Timer
}

// startWatchdog calls kill once if finish has not been called within timeout.
// kill runs with the watchdog lock held and must not call back into it.
func startWatchdog(timeout time.Duration, kill func()) *watchdog {
	w := &watchdog{}
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.state != watchRunning {
			return
		}
		w.state = watchFired
		kill()
	})
	return w
}

// finish marks draining as complete and reports whether the watchdog fired first.
func (w *watchdog) finish() bool {
	w.timer.Stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == watchRunning {
		w.state = watchDrained
	}
	return w.state == watchFired
}
