package pump

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
)

type fakeRouter struct {
	frame     []byte
	hasFrame  bool
	available bool
}

func (f *fakeRouter) NextFrame() ([]byte, bool) {
	if f.hasFrame {
		return f.frame, true
	}
	return nil, false
}

func (f *fakeRouter) PCMAvailable(time.Duration) bool { return f.available }

type recordingSink struct {
	frames [][]byte
}

func (s *recordingSink) WriteFrame(frame []byte) {
	s.frames = append(s.frames, frame)
}

func TestPump_PrefersLiveRouterFrame(t *testing.T) {
	live := make([]byte, audioformat.FrameBytes)
	live[0] = 0x42
	router := &fakeRouter{frame: live, hasFrame: true}
	fb := fallback.NewManager(fallback.NewTone(440))
	sink := &recordingSink{}
	clk := clock.NewFake(time.Now())

	p := New(router, fb, sink, clk, DefaultConfig())
	frame := p.selectFrame()
	assert.Equal(t, live, frame)
}

func TestPump_EmitsSilenceWithinGraceWhenNoFrame(t *testing.T) {
	router := &fakeRouter{hasFrame: false, available: true}
	fb := fallback.NewManager(fallback.NewTone(440))
	sink := &recordingSink{}
	clk := clock.NewFake(time.Now())

	p := New(router, fb, sink, clk, DefaultConfig())
	frame := p.selectFrame()
	assert.Equal(t, audioformat.NewSilentFrame(), frame)
}

func TestPump_FallsBackToFallbackSourcePastGrace(t *testing.T) {
	router := &fakeRouter{hasFrame: false, available: false}
	fb := fallback.NewManager(fallback.Silence{})
	sink := &recordingSink{}
	clk := clock.NewFake(time.Now())

	p := New(router, fb, sink, clk, DefaultConfig())
	frame := p.selectFrame()
	assert.Equal(t, audioformat.NewSilentFrame(), frame) // fallback.Silence also yields zeros
	assert.Equal(t, "silence", fb.Mode())
}

func TestPump_RunStopsOnContextCancel(t *testing.T) {
	router := &fakeRouter{hasFrame: false, available: false}
	fb := fallback.NewManager(fallback.Silence{})
	sink := &recordingSink{}
	clk := clock.NewFake(time.Now())

	p := New(router, fb, sink, clk, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}
