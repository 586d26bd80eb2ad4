// Package clock provides a small indirection over wall-clock time so the
// pacer, watchdogs, and jitter buffer can be driven deterministically in
// tests, the same way the teacher's Scheduler is parameterised by an
// interval rather than hard-coding time.Now() everywhere.
package clock

import "time"

// Clock is the subset of time package behaviour the playout and streaming
// cores depend on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the Clock backed by the actual system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(d time.Duration) { time.Sleep(d) }

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
