// Package pump implements Tower's audio pump (§4.5): the steady-state
// loop that produces exactly one PCM frame per 21.333 ms tick, from
// whichever source is currently authoritative, and fire-and-forgets it
// into the encoder.
package pump

import (
	"context"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
	"github.com/slbailey/retrowaves-sub001/internal/pacer"
)

// Router is the subset of towerpcm.Router the pump needs, narrowed to
// an interface so it can be faked in tests without a real socket.
type Router interface {
	NextFrame() ([]byte, bool)
	PCMAvailable(grace time.Duration) bool
}

// EncoderSink is the subset of encoder.Manager the pump writes PCM into.
type EncoderSink interface {
	WriteFrame(frame []byte)
}

// Config tunes the pump's source-arbitration thresholds.
type Config struct {
	PCMGrace time.Duration
}

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{PCMGrace: 5 * time.Second}
}

// Pump reads from a Router/fallback.Manager each tick, per the §4.5
// arbitration order (live frame, then grace-period silence, then
// fallback), and writes the chosen frame to an EncoderSink.
type Pump struct {
	router   Router
	fb       *fallback.Manager
	sink     EncoderSink
	cfg      Config
	pacer    *pacer.Pacer
}

// New returns a Pump reading from router and fb, writing to sink,
// paced by clk at the canonical frame period.
func New(router Router, fb *fallback.Manager, sink EncoderSink, clk clock.Clock, cfg Config) *Pump {
	return &Pump{
		router: router,
		fb:     fb,
		sink:   sink,
		cfg:    cfg,
		pacer:  pacer.New(clk, audioformat.FramePeriod),
	}
}

// Run ticks until ctx is cancelled, producing and dispatching exactly
// one frame per period.
func (p *Pump) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.pacer.WaitNext()
		if ctx.Err() != nil {
			return
		}
		p.sink.WriteFrame(p.selectFrame())
	}
}

// selectFrame implements the per-tick source arbitration: live router
// frame, then grace-period silence, then the active fallback source.
func (p *Pump) selectFrame() []byte {
	if frame, ok := p.router.NextFrame(); ok {
		return frame
	}
	if p.router.PCMAvailable(p.cfg.PCMGrace) {
		return audioformat.NewSilentFrame()
	}
	return p.fb.ReadFrame()
}
