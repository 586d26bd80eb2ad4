// Package encoder owns Tower's out-of-process MP3 encoder (§4.6):
// starting and restarting the ffmpeg subprocess, draining its MP3 output
// into a ring buffer, and detecting stalls — all without ever blocking
// the audio pump's PCM writes.
package encoder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/ringbuf"
)

// State is one of the encoder's lifecycle states.
type State int

const (
	Stopped State = iota
	Running
	Restarting
	Failed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Restarting:
		return "restarting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultBackoff is the restart delay schedule: 1s, 2s, 4s, 8s, 10s,
// repeating at the last value for any attempt beyond the table.
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}

// Config tunes the manager's restart and stall-detection behaviour.
type Config struct {
	BitrateKbps     int
	MaxRestarts     int
	Backoff         []time.Duration
	StallThreshold  time.Duration
	RingCapacity    int
}

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{
		BitrateKbps:    128,
		MaxRestarts:    5,
		Backoff:        DefaultBackoff,
		StallThreshold: 300 * time.Millisecond,
		RingCapacity:   512,
	}
}

func (c Config) backoffFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(c.Backoff) {
		return c.Backoff[len(c.Backoff)-1]
	}
	return c.Backoff[attempt]
}

// Manager owns the encoder subprocess's lifecycle and its MP3 output
// ring buffer. Run drives the state machine until ctx is cancelled or
// the encoder reaches Failed.
type Manager struct {
	clk clock.Clock
	cfg Config

	ring *ringbuf.Ring[[]byte]

	mu      sync.Mutex
	state   State
	proc    *process
	started time.Time
}

// NewManager returns a Manager with the given clock (for deterministic
// backoff tests) and tuning.
func NewManager(clk clock.Clock, cfg Config) *Manager {
	return &Manager{
		clk:   clk,
		cfg:   cfg,
		ring:  ringbuf.New[[]byte](cfg.RingCapacity),
		state: Stopped,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ring exposes the MP3 chunk ring buffer, consumed by the jitter buffer.
func (m *Manager) Ring() *ringbuf.Ring[[]byte] { return m.ring }

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// WriteFrame forwards frame to the live encoder's stdin, dropping it
// silently if the encoder isn't RUNNING or its writer is backlogged.
func (m *Manager) WriteFrame(frame []byte) {
	m.mu.Lock()
	p := m.proc
	state := m.state
	m.mu.Unlock()
	if state != Running || p == nil {
		return
	}
	p.stdin.TryWrite(frame)
}

// Run drives the encoder lifecycle until ctx is cancelled or the
// restart budget is exhausted (state becomes Failed).
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			m.setState(Stopped)
			return ctx.Err()
		}

		p, err := startProcess(ctx, m.cfg.BitrateKbps)
		if err != nil {
			attempt++
			slog.Warn("encoder: start failed", "attempt", attempt, "error", err)
			if attempt > m.cfg.MaxRestarts {
				m.setState(Failed)
				return errors.New("encoder: exceeded max restart attempts")
			}
			m.setState(Restarting)
			m.clk.Sleep(m.cfg.backoffFor(attempt - 1))
			continue
		}

		m.ring.Clear()
		m.mu.Lock()
		m.proc = p
		m.state = Running
		m.started = m.clk.Now()
		m.mu.Unlock()
		attempt = 0
		slog.Info("encoder: started")

		crashed := m.runDrainUntilCrashOrStall(ctx, p)
		p.kill()

		if ctx.Err() != nil {
			m.setState(Stopped)
			return ctx.Err()
		}

		reason := "crash"
		if !crashed {
			reason = "stall"
		}
		slog.Warn("encoder: restarting", "reason", reason)
		attempt++
		if attempt > m.cfg.MaxRestarts {
			m.setState(Failed)
			return errors.New("encoder: exceeded max restart attempts")
		}
		m.setState(Restarting)
		m.clk.Sleep(m.cfg.backoffFor(attempt - 1))
	}
}

// runDrainUntilCrashOrStall reads p's stdout into the ring buffer until
// either the process exits (crash, returns true) or the stall watchdog
// fires (returns false). It blocks until one of those, or ctx is done.
func (m *Manager) runDrainUntilCrashOrStall(ctx context.Context, p *process) bool {
	lastData := m.clk.Now()
	var lastDataMu sync.Mutex

	eofCh := make(chan struct{})
	go func() {
		defer close(eofCh)
		buf := make([]byte, 1024)
		for {
			n, err := p.stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				m.ring.Push(chunk)
				lastDataMu.Lock()
				lastData = m.clk.Now()
				lastDataMu.Unlock()
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Debug("encoder: stdout read error", "error", err)
				}
				return
			}
		}
	}()

	startupGrace := m.cfg.StallThreshold * 3
	ticker := m.clk.NewTicker(m.cfg.StallThreshold)
	defer ticker.Stop()
	start := m.clk.Now()

	for {
		select {
		case <-ctx.Done():
			return true
		case <-eofCh:
			return true
		case <-ticker.C():
			if m.clk.Now().Sub(start) < startupGrace {
				continue
			}
			lastDataMu.Lock()
			idle := m.clk.Now().Sub(lastData)
			lastDataMu.Unlock()
			if idle >= m.cfg.StallThreshold {
				return false
			}
		}
	}
}
