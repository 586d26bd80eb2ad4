package stationsock

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

func TestWriter_WritesFramesToListener(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "station.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 4)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, audioformat.FrameBytes)
		for {
			_, err := io.ReadFull(conn, buf)
			if err != nil {
				return
			}
			frame := make([]byte, len(buf))
			copy(frame, buf)
			received <- frame
		}
	}()

	w := New("unix", sockPath)
	require.NoError(t, w.Connect())
	defer w.Close()

	frame := audioformat.NewSilentFrame()
	frame[0] = 0x7F
	require.NoError(t, w.WriteFrame(frame))

	select {
	case got := <-received:
		assert.Equal(t, frame, got)
	case <-time.After(time.Second):
		t.Fatal("listener did not receive frame")
	}
}

func TestWriter_DialFailureIsReturnedNotPanicked(t *testing.T) {
	w := New("unix", filepath.Join(t.TempDir(), "nonexistent.sock"))
	err := w.Connect()
	assert.Error(t, err)
}

func TestWriter_ReconnectsAfterPersistentFailure(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "station.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	conns := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
		}
	}()

	w := New("unix", sockPath)
	require.NoError(t, w.Connect())
	defer w.Close()

	first := <-conns
	first.Close() // force the next write to fail

	frame := audioformat.NewSilentFrame()
	_ = w.WriteFrame(frame) // first write after close may error and drop

	require.Eventually(t, func() bool {
		return len(conns) > 0
	}, time.Second, time.Millisecond, "writer should have reconnected")
}
