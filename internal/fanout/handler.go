package fanout

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var errSlowClient = errors.New("fanout: client write exceeded timeout")

// StreamHandler serves GET /stream: register, relay every published
// chunk to the response body, unregister on disconnect or eviction.
type StreamHandler struct {
	b           *Broadcaster
	stationName string
	maxClients  int
}

// NewStreamHandler returns a handler backed by b, rejecting new
// connections once maxClients (0 = unlimited) are already registered.
func NewStreamHandler(b *Broadcaster, stationName string, maxClients int) *StreamHandler {
	return &StreamHandler{b: b, stationName: stationName, maxClients: maxClients}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxClients > 0 && h.b.ClientCount() >= h.maxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	id := h.b.Register()
	defer h.b.Unregister(id)

	c, ok := h.b.clientByID(id)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("icy-name", h.stationName)
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	ctx := r.Context()

	slog.Info("fanout: client connected", "remote_addr", r.RemoteAddr, "active_clients", h.b.ClientCount())
	defer slog.Info("fanout: client disconnected", "remote_addr", r.RemoteAddr, "active_clients", h.b.ClientCount()-1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.notify:
			chunks, dropped := c.drain()
			for _, chunk := range chunks {
				if err := writeWithTimeout(w, chunk, clientTimeoutOf(h.b)); err != nil {
					slog.Debug("fanout: evicting slow client", "remote_addr", r.RemoteAddr, "error", err)
					return
				}
			}
			if canFlush {
				flusher.Flush()
			}
			if dropped {
				return
			}
		}
	}
}

func clientTimeoutOf(b *Broadcaster) time.Duration {
	if b.cfg.ClientTimeout > 0 {
		return b.cfg.ClientTimeout
	}
	return 250 * time.Millisecond
}

// writeWithTimeout writes data to w, treating a write that doesn't
// complete within timeout as a slow client. http.ResponseWriter offers
// no socket-level write deadline (unlike a raw net.Conn), so readiness
// is approximated by racing the write against a timer on a dedicated
// goroutine — the same "don't let one slow client block everyone"
// intent spec.md describes, expressed with what net/http exposes.
func writeWithTimeout(w io.Writer, data []byte, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		_, err := w.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errSlowClient
	}
}
