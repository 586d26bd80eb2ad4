// Package playout implements the Station playout queue's engine: the
// single scheduling thread that dequeues AudioEvents, decodes and paces
// them to the PCM sink, and runs the THINK/DO pair around each segment's
// start and finish.
package playout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/decoder"
	"github.com/slbailey/retrowaves-sub001/internal/djcore"
	"github.com/slbailey/retrowaves-sub001/internal/events"
	"github.com/slbailey/retrowaves-sub001/internal/intent"
	"github.com/slbailey/retrowaves-sub001/internal/lifecycle"
	"github.com/slbailey/retrowaves-sub001/internal/pacer"
	"github.com/slbailey/retrowaves-sub001/internal/queue"
)

// ErrCrossIntentLeakage is raised when an enqueue would place events from
// two different intents adjacently in the queue.
var ErrCrossIntentLeakage = errors.New("playout: cross-intent leakage detected")

// PCMSink receives one decoded frame at a time, in order.
type PCMSink interface {
	WriteFrame(frame []byte) error
}

// DecoderOpener opens a Decoder over a path. Production code wires
// decoder.Open; tests wire a fake.
type DecoderOpener func(ctx context.Context, path string) (decoder.Decoder, error)

// Listener observes segment lifecycle events, the typed replacement for a
// callback-registration cycle (DESIGN NOTES): the engine publishes, any
// listener (DJ, observability, heartbeat) can subscribe without the engine
// needing to know about them by name.
type Listener interface {
	SegmentStarted(segment events.AudioEvent)
	SegmentFinished(segment events.AudioEvent)
}

// Engine is the single scheduling thread driving the playout queue.
type Engine struct {
	queue       *queue.Queue
	core        *djcore.Core
	lc          *lifecycle.Controller
	openDecoder DecoderOpener
	sink        PCMSink
	pc          *pacer.Pacer
	clk         clock.Clock
	strictMode  bool
	pollPeriod  time.Duration
	listeners   []Listener
}

// New returns an Engine. strictMode enables the full tail-match assertion
// after each enqueue, comparing the last N events to the expanded intent.
func New(q *queue.Queue, core *djcore.Core, lc *lifecycle.Controller, openDecoder DecoderOpener, sink PCMSink, pc *pacer.Pacer, clk clock.Clock, strictMode bool) *Engine {
	return &Engine{
		queue:       q,
		core:        core,
		lc:          lc,
		openDecoder: openDecoder,
		sink:        sink,
		pc:          pc,
		clk:         clk,
		strictMode:  strictMode,
		pollPeriod:  100 * time.Millisecond,
	}
}

// AddListener registers l to receive segment lifecycle notifications.
func (e *Engine) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

func (e *Engine) notifyStarted(seg events.AudioEvent) {
	for _, l := range e.listeners {
		l.SegmentStarted(seg)
	}
}

func (e *Engine) notifyFinished(seg events.AudioEvent) {
	for _, l := range e.listeners {
		l.SegmentFinished(seg)
	}
}

// Run executes the startup state machine and then the main scheduling
// loop until ctx is cancelled or the engine reaches STOPPED after
// draining. It is the only goroutine permitted to dequeue or call
// THINK/DO, per the single-scheduling-thread requirement.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.runStartup(ctx); err != nil {
		return err
	}
	return e.runMainLoop(ctx)
}

// runStartup implements BOOTSTRAP through STARTUP_DO_ENQUEUE: inject any
// startup announcement directly (never via DO), then enqueue the first
// real break.
func (e *Engine) runStartup(ctx context.Context) error {
	e.core.Think(nil, e.lc)

	if ann, ok := e.core.TakeStartupAnnouncement(); ok {
		e.lc.EnterStartupAnnouncementPlaying()
		e.notifyStarted(*ann)
		// The announcement is itself a segment_started event: THINK must
		// run now so the first real break is ready by the time it finishes.
		e.core.Think(ann, e.lc)

		if err := e.playFrames(ctx, *ann); err != nil {
			return err
		}
		e.notifyFinished(*ann)
		e.lc.EnterStartupThinkComplete()

		result, err := e.core.Do(e.lc)
		if err != nil {
			slog.Error("playout: startup DO failed", "error", err)
		}
		e.lc.EnterStartupDoEnqueue()
		if result != nil {
			if err := e.enqueueIntent(result); err != nil {
				return err
			}
		}
		return nil
	}

	// No startup announcement configured: the bootstrap THINK call above
	// already composed the first real break directly.
	result, err := e.core.Do(e.lc)
	if err != nil {
		slog.Error("playout: startup DO failed (no announcement)", "error", err)
		return nil
	}
	e.lc.EnterStartupDoEnqueue()
	if result != nil {
		return e.enqueueIntent(result)
	}
	return nil
}

// runMainLoop dequeues one event at a time, decodes and paces it, and runs
// THINK/DO around its start and finish.
func (e *Engine) runMainLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ev, ok := e.queue.Dequeue()
		if !ok {
			if e.lc.IsDraining() {
				e.lc.EnterStopped()
				return nil
			}
			e.clk.Sleep(e.pollPeriod)
			continue
		}

		e.notifyStarted(ev)
		e.core.Think(&ev, e.lc)

		if err := e.playFrames(ctx, ev); err != nil {
			return err
		}
		e.notifyFinished(ev)

		if ev.Tag == events.TagSong && e.lc.State() != lifecycle.NormalOperation && !e.lc.IsDraining() {
			e.lc.EnterNormalOperation()
		}

		result, err := e.core.Do(e.lc)
		if err != nil {
			if !errors.Is(err, djcore.ErrNoPendingIntent) {
				slog.Error("playout: DO failed", "error", err)
			}
			continue
		}
		if result == nil {
			continue
		}
		if err := e.enqueueIntent(result); err != nil {
			return err
		}
	}
}

// playFrames decodes path's audio and paces each frame to the sink until
// the decoder is exhausted.
func (e *Engine) playFrames(ctx context.Context, ev events.AudioEvent) error {
	dec, err := e.openDecoder(ctx, ev.Path)
	if err != nil {
		slog.Error("playout: failed to open decoder", "path", ev.Path, "error", err)
		return nil
	}
	defer dec.Close()

	for {
		frame, err := dec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			slog.Error("playout: decoder read failed", "path", ev.Path, "error", err)
			return nil
		}
		e.pc.WaitNext()
		if err := e.sink.WriteFrame(frame); err != nil {
			slog.Debug("playout: sink write failed, frame dropped", "error", err)
		}
	}
}

// enqueueIntent enforces atomic intent enforcement: the queue must be
// empty, or its head's intent_id must match the intent being enqueued.
func (e *Engine) enqueueIntent(result *intent.DJIntent) error {
	evts := result.Events()
	if len(evts) == 0 {
		return nil
	}

	if head, ok := e.queue.PeekHeadIntentID(); ok && head != result.ID {
		return ErrCrossIntentLeakage
	}

	e.queue.Enqueue(evts)

	if e.strictMode {
		tail := e.queue.GetTail(len(evts))
		for _, te := range tail {
			if te.IntentID != result.ID {
				return ErrCrossIntentLeakage
			}
		}
	}
	return nil
}
