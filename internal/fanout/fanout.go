// Package fanout implements Tower's HTTP fan-out (§4.7): a single
// broadcast producer loop fed MP3 chunks, distributing them to an
// arbitrary number of registered listeners while evicting slow clients
// without ever stalling fast ones.
package fanout

import (
	"sync"
	"time"
)

// Config tunes the fan-out's slow-client eviction policy.
type Config struct {
	ClientTimeout     time.Duration
	ClientBufferBytes int
}

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{
		ClientTimeout:     250 * time.Millisecond,
		ClientBufferBytes: 64 * 1024,
	}
}

// Broadcaster fans MP3 chunks out to registered clients, generalising
// the teacher's Broadcaster (internal/radio/stream.go): that one reads
// ffmpeg stdout straight off an io.Writer fan-out and buffers each
// client behind a fixed-depth channel of whole chunks; this one is fed
// explicit Publish(chunk) calls from the jitter buffer and tracks each
// client's buffered byte count directly, since the spec's eviction rule
// is expressed in bytes (client_buffer_bytes) rather than channel depth.
type Broadcaster struct {
	cfg Config

	mu      sync.RWMutex
	clients map[uint64]*client
	nextID  uint64
}

// New returns an empty Broadcaster.
func New(cfg Config) *Broadcaster {
	return &Broadcaster{
		cfg:     cfg,
		clients: make(map[uint64]*client),
	}
}

// client is one registered listener's outbound byte queue.
type client struct {
	mu      sync.Mutex
	queue   [][]byte
	bytes   int
	notify  chan struct{}
	dropped bool
}

func newClient() *client {
	return &client{notify: make(chan struct{}, 1)}
}

func (c *client) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// enqueue appends chunk to the client's queue, evicting the client
// (marking it dropped, never blocking the broadcast loop) if doing so
// would exceed ClientBufferBytes.
func (c *client) enqueue(chunk []byte, maxBytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return
	}
	if c.bytes+len(chunk) > maxBytes {
		c.dropped = true
		c.signal()
		return
	}
	c.queue = append(c.queue, chunk)
	c.bytes += len(chunk)
	c.signal()
}

// drain removes and returns every queued chunk, resetting the byte
// counter, along with whether the client has been marked dropped.
func (c *client) drain() ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	c.bytes = 0
	return q, c.dropped
}

// Register adds a new listener and returns an id to Publish against and
// later Unregister.
func (b *Broadcaster) Register() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.clients[id] = newClient()
	return id
}

// Unregister removes a listener.
func (b *Broadcaster) Unregister(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, id)
}

// Publish fans chunk out to every registered client's queue. Never
// blocks: a client whose buffer would overflow is marked dropped rather
// than backpressuring this call.
func (b *Broadcaster) Publish(chunk []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		c.enqueue(chunk, b.cfg.ClientBufferBytes)
	}
}

// ClientCount reports the number of currently registered listeners.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) clientByID(id uint64) (*client, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clients[id]
	return c, ok
}
