// Package towerpcm implements Tower's PCM input router (§4.4): accepts
// exactly one PCM producer at a time, reassembles its byte stream into
// fixed-size frames, publishes them to a bounded ring buffer, and detects
// long idle without closing the writer's socket.
package towerpcm

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/ringbuf"
)

const (
	readChunkSize  = 8 * 1024
	watchdogPeriod = 5 * time.Second
)

// ErrProducerAlreadyConnected is returned by Accept when a second producer
// tries to connect while one is already active.
var ErrProducerAlreadyConnected = errors.New("towerpcm: a producer is already connected")

// Router accepts one PCM producer at a time on ln, reassembles its stream
// into audioformat.FrameBytes-sized frames, and publishes them to ring.
type Router struct {
	ln  net.Listener
	clk clock.Clock

	idleTimeout time.Duration

	ring *ringbuf.Ring[[]byte]

	mu           sync.Mutex
	active       bool
	dead         bool
	lastFrameTs  time.Time

	stopCh chan struct{}
}

// New returns a Router listening on ln, publishing frames to capacity-N
// ring, with idleTimeout as the watchdog's dead-detection threshold
// (default 30s, per the component design, when zero is passed).
func New(ln net.Listener, clk clock.Clock, idleTimeout time.Duration) *Router {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	return &Router{
		ln:          ln,
		clk:         clk,
		idleTimeout: idleTimeout,
		ring:        ringbuf.New[[]byte](50),
		stopCh:      make(chan struct{}),
	}
}

// Ring exposes the underlying frame ring buffer, e.g. for /tower/buffer.
func (r *Router) Ring() *ringbuf.Ring[[]byte] { return r.ring }

// Run accepts connections until the listener closes or Stop is called.
// Only one connection may be active at a time; a second is refused
// immediately by closing it.
func (r *Router) Run() error {
	go r.watchdog()

	for {
		conn, err := r.ln.Accept()
		if err != nil {
			select {
			case <-r.stopCh:
				return nil
			default:
				return err
			}
		}

		r.mu.Lock()
		if r.active {
			r.mu.Unlock()
			slog.Warn("towerpcm: refusing second producer connection")
			conn.Close()
			continue
		}
		r.active = true
		r.dead = false
		r.lastFrameTs = r.clk.Now()
		r.mu.Unlock()

		go r.readLoop(conn)
	}
}

// Stop closes the listener, ending Run.
func (r *Router) Stop() {
	close(r.stopCh)
	r.ln.Close()
}

func (r *Router) readLoop(conn net.Conn) {
	defer func() {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
		conn.Close()
	}()

	reasm := newReassembler()
	chunk := make([]byte, readChunkSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			for _, frame := range reasm.Feed(chunk[:n]) {
				r.publishFrame(frame)
			}
		}
		if err != nil {
			if isFatal(err) {
				return
			}
			// Transient error: keep the socket open and keep reading.
			continue
		}
	}
}

func (r *Router) publishFrame(frame []byte) {
	r.ring.Push(frame)
	r.mu.Lock()
	r.lastFrameTs = r.clk.Now()
	r.dead = false
	r.mu.Unlock()
}

func isFatal(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	return true
}

// watchdog wakes every watchdogPeriod and marks the router dead if the
// last frame arrived longer than idleTimeout ago. It never closes the
// writer's socket — only the reassembly/publish path stops mattering.
func (r *Router) watchdog() {
	ticker := r.clk.NewTicker(watchdogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C():
			r.mu.Lock()
			if !r.lastFrameTs.IsZero() && r.clk.Now().Sub(r.lastFrameTs) > r.idleTimeout && !r.dead {
				r.dead = true
				r.mu.Unlock()
				r.ring.Clear()
				slog.Warn("towerpcm: router marked dead, idle timeout exceeded")
				continue
			}
			r.mu.Unlock()
		}
	}
}

// NextFrame returns the oldest queued frame, or nil if the router is dead
// or the buffer is currently empty.
func (r *Router) NextFrame() ([]byte, bool) {
	r.mu.Lock()
	dead := r.dead
	r.mu.Unlock()
	if dead {
		return nil, false
	}
	return r.ring.Pop()
}

// PCMAvailable reports whether a frame arrived within the last grace
// period, used by the audio pump to decide between silence and fallback.
func (r *Router) PCMAvailable(grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastFrameTs.IsZero() {
		return false
	}
	return r.clk.Now().Sub(r.lastFrameTs) < grace
}

// Dead reports the watchdog's current live/dead verdict.
func (r *Router) Dead() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dead
}
