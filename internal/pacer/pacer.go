// Package pacer implements absolute-clock frame pacing: the next-frame
// deadline always advances by a fixed interval from the previous deadline,
// and a pacer that falls behind resyncs its deadline to now() instead of
// accumulating drift. The same type serves Station's PCM socket writer
// (§4.3, optionally adaptive) and Tower's audio pump (§4.5, always
// nominal) — both need exactly this discipline, just with a different
// interval source.
package pacer

import (
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
)

// BufferObserver reports a remote ring buffer's current fill state, used
// for the optional adaptive-rate zones. ok is false when no telemetry is
// available (e.g. the remote endpoint is unreachable), in which case the
// pacer falls back to its nominal interval.
type BufferObserver interface {
	BufferFill() (fill, capacity int, ok bool)
}

// Zone boundaries and sleep targets for adaptive pacing, per the component
// design's stated defaults (empirical, not derived from a formal
// controller).
const (
	lowZoneMax    = 0.20
	sweetZoneMax  = 0.70
	pollInterval  = 500 * time.Millisecond
	sweetInterval = 18 * time.Millisecond
	highInterval  = 30 * time.Millisecond
)

// Pacer paces a caller through a fixed frame interval using absolute
// deadlines rather than successive relative sleeps.
type Pacer struct {
	clk      clock.Clock
	nominal  time.Duration
	observer BufferObserver

	deadline     time.Time
	started      bool
	lastPoll     time.Time
	zoneInterval time.Duration
}

// New returns a Pacer advancing by nominal each call to WaitNext, with no
// adaptive observer (Tower's audio pump usage — always exact nominal Δ).
func New(clk clock.Clock, nominal time.Duration) *Pacer {
	return &Pacer{clk: clk, nominal: nominal}
}

// WithObserver enables adaptive-rate zone adjustment, polling obs no more
// often than every 500 ms.
func (p *Pacer) WithObserver(obs BufferObserver) *Pacer {
	p.observer = obs
	return p
}

// WaitNext blocks until the next frame deadline and advances it by one
// interval. The first call returns immediately and establishes the epoch.
func (p *Pacer) WaitNext() {
	interval := p.currentInterval()

	now := p.clk.Now()
	if !p.started {
		p.deadline = now
		p.started = true
		return
	}

	p.deadline = p.deadline.Add(interval)
	now = p.clk.Now()
	if now.After(p.deadline) {
		// Fell behind: resync to now rather than accumulate drift.
		p.deadline = now
		return
	}
	p.clk.Sleep(p.deadline.Sub(now))
}

func (p *Pacer) currentInterval() time.Duration {
	if p.observer == nil {
		return p.nominal
	}

	now := p.clk.Now()
	if p.lastPoll.IsZero() || now.Sub(p.lastPoll) >= pollInterval {
		p.lastPoll = now
		if fill, capacity, ok := p.observer.BufferFill(); ok && capacity > 0 {
			ratio := float64(fill) / float64(capacity)
			switch {
			case ratio < lowZoneMax:
				p.zoneInterval = 0
			case ratio <= sweetZoneMax:
				p.zoneInterval = sweetInterval
			default:
				p.zoneInterval = highInterval
			}
		} else {
			p.zoneInterval = p.nominal
		}
	}
	return p.zoneInterval
}
