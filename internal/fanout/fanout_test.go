package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_RegisterUnregisterTracksClientCount(t *testing.T) {
	b := New(DefaultConfig())
	assert.Equal(t, 0, b.ClientCount())

	id := b.Register()
	assert.Equal(t, 1, b.ClientCount())

	b.Unregister(id)
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroadcaster_PublishFansOutToEveryClient(t *testing.T) {
	b := New(DefaultConfig())
	id1 := b.Register()
	id2 := b.Register()

	b.Publish([]byte("chunk"))

	c1, _ := b.clientByID(id1)
	c2, _ := b.clientByID(id2)

	q1, dropped1 := c1.drain()
	q2, dropped2 := c2.drain()

	assert.False(t, dropped1)
	assert.False(t, dropped2)
	assert.Equal(t, [][]byte{[]byte("chunk")}, q1)
	assert.Equal(t, [][]byte{[]byte("chunk")}, q2)
}

func TestBroadcaster_EvictsClientOnBufferOverflow(t *testing.T) {
	cfg := Config{ClientBufferBytes: 10}
	b := New(cfg)
	id := b.Register()

	b.Publish(make([]byte, 6))
	c, _ := b.clientByID(id)

	q, dropped := c.drain()
	assert.Len(t, q, 1)
	assert.False(t, dropped)

	// drain reset the counter; two undrained 6-byte chunks overflow.
	b.Publish(make([]byte, 6))
	b.Publish(make([]byte, 6)) // 6+6 > 10: evicted
	q2, dropped2 := c.drain()
	assert.Len(t, q2, 1)
	assert.True(t, dropped2)
}

func TestBroadcaster_OneSlowClientDoesNotBlockOthers(t *testing.T) {
	cfg := Config{ClientBufferBytes: 10}
	b := New(cfg)
	slow := b.Register()
	fast := b.Register()

	slowClient, _ := b.clientByID(slow)
	fastClient, _ := b.clientByID(fast)

	// Simulate the slow client already sitting on a near-full backlog
	// (never drained), while the fast client starts empty.
	slowClient.enqueue(make([]byte, 8), cfg.ClientBufferBytes)

	b.Publish(make([]byte, 4)) // overflows slow (8+4>10), fits fast (0+4<=10)

	_, slowDropped := slowClient.drain()
	fastQueue, fastDropped := fastClient.drain()

	assert.True(t, slowDropped)
	assert.False(t, fastDropped)
	assert.Len(t, fastQueue, 1)
}
