// Package nettimer provides the session state machine's single
// outstanding retransmission timer: at most one interval is pending at a
// time, starting a new one implicitly cancels whatever was running, and
// an expiry is delivered on a channel so it can be selected alongside
// link read/write completions.
package nettimer

import "time"

// Timer is a single-outstanding-request interval timer. It is not safe
// for concurrent use; callers are expected to drive it from the same
// goroutine that owns their event loop, the way the session state
// machine drives the link I/O pool.
type Timer struct {
	t *time.Timer
	c chan struct{}
}

// New returns a Timer with nothing scheduled.
func New() *Timer {
	return &Timer{c: make(chan struct{}, 1)}
}

// Start schedules an expiry after d, replacing any timer already
// running. Only the most recently started interval can ever fire.
func (tm *Timer) Start(d time.Duration) {
	tm.Stop()

	for len(tm.c) > 0 {
		<-tm.c
	}

	tm.t = time.AfterFunc(d, func() {
		select {
		case tm.c <- struct{}{}:
		default:
		}
	})
}

// Stop cancels any running interval. It is a no-op if nothing is
// scheduled.
func (tm *Timer) Stop() {
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
}

// C returns the channel an expiry is delivered on. It never closes.
func (tm *Timer) C() <-chan struct{} {
	return tm.c
}
