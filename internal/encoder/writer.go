package encoder

import (
	"io"
	"log/slog"
)

// stdinWriter fire-and-forgets PCM frames into a child process's stdin
// pipe without ever blocking the caller: a single dedicated goroutine
// owns the actual (blocking) io.Writer, and TryWrite only ever attempts a
// non-blocking send on a capacity-1 channel: one frame may wait while the
// goroutine is busy writing the previous one, and any further frame is
// dropped immediately until that slot frees up. This is the Go-idiomatic
// equivalent of the O_NONBLOCK fd spec.md describes — a real non-blocking
// fcntl on a process pipe needs platform-specific syscalls the pack never
// reaches for, and a drop-on-backlog channel gives the pump the identical
// "never blocks, may lose a frame under backlog" guarantee.
type stdinWriter struct {
	w      io.WriteCloser
	frames chan []byte
	done   chan struct{}
}

func newStdinWriter(w io.WriteCloser) *stdinWriter {
	sw := &stdinWriter{
		w:      w,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	go sw.run()
	return sw
}

func (sw *stdinWriter) run() {
	defer close(sw.done)
	for frame := range sw.frames {
		if _, err := sw.w.Write(frame); err != nil {
			slog.Debug("encoder: stdin write failed, encoder likely exiting", "error", err)
			return
		}
	}
}

// TryWrite enqueues frame for the writer goroutine, dropping it
// immediately (never blocking) if the one-frame queue is already full.
func (sw *stdinWriter) TryWrite(frame []byte) (accepted bool) {
	select {
	case sw.frames <- frame:
		return true
	default:
		return false
	}
}

// Close stops accepting frames and closes the underlying pipe once the
// writer goroutine has drained what it already accepted.
func (sw *stdinWriter) Close() error {
	close(sw.frames)
	<-sw.done
	return sw.w.Close()
}
