// Package jitter implements Tower's MP3 jitter buffer (§4.6): the
// consumer-facing smoothing layer between the encoder's drain thread and
// the HTTP fan-out, pacing reads to a fixed cadence and substituting a
// silent chunk during priming, recovery, or encoder outage rather than
// ever blocking the fan-out loop or returning nothing.
package jitter

import (
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/ringbuf"
)

// Config tunes the jitter buffer's thresholds and cadence.
type Config struct {
	MinChunks     int
	RecoverChunks int
	ReadInterval  time.Duration
}

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{
		MinChunks:     16,
		RecoverChunks: 8,
		ReadInterval:  15 * time.Millisecond,
	}
}

// Buffer smooths reads from an MP3 chunk ring buffer for the fan-out
// loop, enforcing a fixed cadence and never returning no data.
type Buffer struct {
	ring *ringbuf.Ring[[]byte]
	clk  clock.Clock
	cfg  Config

	isOutage func() bool

	filling    bool
	recovering bool
	lastRead   time.Time
}

// New returns a Buffer reading from ring, paced by clk, with isOutage
// reporting true whenever the encoder is RESTARTING or FAILED (nil is
// accepted when no encoder liveness gating is needed, e.g. in tests).
func New(ring *ringbuf.Ring[[]byte], clk clock.Clock, cfg Config, isOutage func() bool) *Buffer {
	if isOutage == nil {
		isOutage = func() bool { return false }
	}
	return &Buffer{
		ring:     ring,
		clk:      clk,
		cfg:      cfg,
		isOutage: isOutage,
		filling:  true,
	}
}

// GetChunk returns the next MP3 chunk to broadcast, pacing itself to
// cfg.ReadInterval and substituting SilentChunk() during priming
// underflow, recovery, or an encoder outage. It never blocks longer than
// one read-interval-ish poll and always returns non-nil data.
func (b *Buffer) GetChunk() []byte {
	b.paceRead()

	if b.isOutage() {
		return SilentChunk()
	}

	if b.filling {
		return b.fillingRead()
	}
	return b.streamingRead()
}

func (b *Buffer) paceRead() {
	now := b.clk.Now()
	if !b.lastRead.IsZero() {
		elapsed := now.Sub(b.lastRead)
		if elapsed < b.cfg.ReadInterval {
			b.clk.Sleep(b.cfg.ReadInterval - elapsed)
		}
	}
	b.lastRead = b.clk.Now()
}

// fillingRead implements the start-up/post-underflow filling mode: wait
// briefly (≈30ms split into 3ms polls) for the ring to reach MinChunks
// before switching to streaming mode; fall back to silence if it doesn't.
func (b *Buffer) fillingRead() []byte {
	const pollStep = 3 * time.Millisecond
	const pollBudget = 30 * time.Millisecond

	if b.ring.Len() >= b.cfg.MinChunks {
		b.filling = false
		return b.streamingRead()
	}

	waited := time.Duration(0)
	for waited < pollBudget {
		b.clk.Sleep(pollStep)
		waited += pollStep
		if b.ring.Len() >= b.cfg.MinChunks {
			b.filling = false
			return b.streamingRead()
		}
	}

	return SilentChunk()
}

// streamingRead implements steady-state streaming: pop the oldest
// chunk, entering a recovery pause (silence until refilled past
// RecoverChunks) if the ring drops below RecoverChunks.
func (b *Buffer) streamingRead() []byte {
	if b.ring.Len() < b.cfg.RecoverChunks {
		b.recovering = true
	}
	if b.recovering {
		if b.ring.Len() > b.cfg.RecoverChunks {
			b.recovering = false
		} else {
			return SilentChunk()
		}
	}

	chunk, ok := b.ring.Pop()
	if !ok {
		return SilentChunk()
	}
	return chunk
}

// Reset returns the buffer to filling mode, e.g. on a fresh encoder
// start where the ring was just cleared.
func (b *Buffer) Reset() {
	b.filling = true
	b.recovering = false
}
