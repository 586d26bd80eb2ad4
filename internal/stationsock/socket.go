// Package stationsock implements the Station-side PCM socket writer:
// Station's half of the local byte stream spec.md §4.3 describes, writing
// an unframed concatenation of 4096-byte frames to a Unix domain socket.
//
// No teacher or pack repo owns a raw socket writer like this one (the
// teacher proxies whole files through an io.Writer via ffmpeg); this is
// built directly from spec.md §4.3 using the standard library's net
// package, which is sufficient for a single-producer Unix socket client —
// no pack example reaches for a networking library beyond net/http for
// this kind of plumbing.
package stationsock

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// Writer is a playout.PCMSink that writes frames to a Unix domain socket,
// retrying a partial write within one frame period and reconnecting on a
// persistent failure. Errors are fire-and-forget: a frame that cannot be
// delivered is dropped, never blocking the pacer.
type Writer struct {
	network string
	address string

	mu   sync.Mutex
	conn net.Conn

	dialTimeout time.Duration
	retryWindow time.Duration
}

// New returns a Writer that dials (network, address) lazily on first
// WriteFrame.
func New(network, address string) *Writer {
	return &Writer{
		network:     network,
		address:     address,
		dialTimeout: 2 * time.Second,
		retryWindow: audioformat.FramePeriod,
	}
}

// Connect dials eagerly, so startup can surface a configuration error
// immediately instead of silently dropping the first frames.
func (w *Writer) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dialLocked()
}

func (w *Writer) dialLocked() error {
	conn, err := net.DialTimeout(w.network, w.address, w.dialTimeout)
	if err != nil {
		return fmt.Errorf("stationsock: dial %s %s: %w", w.network, w.address, err)
	}
	w.conn = conn
	return nil
}

// WriteFrame writes frame, retrying transient partial-write failures
// within one frame period before closing and re-establishing the
// connection. A frame is always considered delivered-or-dropped: this
// call never blocks the pacer beyond roughly one frame period.
func (w *Writer) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		if err := w.dialLocked(); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(w.retryWindow)
	remaining := frame
	for len(remaining) > 0 {
		n, err := w.conn.Write(remaining)
		remaining = remaining[n:]
		if err == nil {
			continue
		}
		if len(remaining) == 0 {
			break
		}
		if time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
			continue
		}
		// Persistent failure: close and re-establish for the next frame;
		// this frame is dropped.
		slog.Debug("stationsock: persistent write failure, reconnecting", "error", err)
		w.conn.Close()
		w.conn = nil
		if dialErr := w.dialLocked(); dialErr != nil {
			return fmt.Errorf("stationsock: reconnect after write failure: %w", dialErr)
		}
		return fmt.Errorf("stationsock: frame dropped after persistent write failure: %w", err)
	}
	return nil
}

// Close releases the underlying connection, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
