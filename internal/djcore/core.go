// Package djcore implements the THINK/DO cycle: deciding what plays next
// and committing that decision as a DJIntent. THINK makes every decision;
// DO only executes what THINK already committed, folding rotation-state
// bookkeeping in from metadata THINK recorded rather than deciding anything
// itself.
package djcore

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/events"
	"github.com/slbailey/retrowaves-sub001/internal/intent"
	"github.com/slbailey/retrowaves-sub001/internal/rotation"
)

// ErrNoPendingIntent is returned by Do when no THINK result is available to
// execute — an abnormal condition the caller should log.
var ErrNoPendingIntent = errors.New("djcore: segment_finished with no pending intent")

// LifecycleView is the narrow slice of lifecycle state THINK and DO need.
// The playout engine's lifecycle controller satisfies this interface
// structurally; djcore never imports it, breaking the cycle the engine
// would otherwise have with its own listener.
type LifecycleView interface {
	// IsDraining reports whether the lifecycle has entered DRAINING.
	IsDraining() bool
	// TerminalLatched reports whether a terminal intent has already been
	// committed for this process lifetime.
	TerminalLatched() bool
	// LatchTerminal records that a terminal intent now exists, so it is
	// never built twice.
	LatchTerminal()
	// ConsumeStartupAnnouncement returns true exactly once — the first time
	// THINK runs with a startup announcement configured — and false on
	// every subsequent call.
	ConsumeStartupAnnouncement() bool
	// NormalOperation reports whether the engine has passed the startup
	// state machine and is running the steady-state song-triggered break
	// cycle. False during BOOTSTRAP/STARTUP_* states.
	NormalOperation() bool
}

// Core owns the DJ's rotation state and the single in-flight decision
// between a segment_started and its matching segment_finished.
type Core struct {
	mu sync.Mutex

	adapter  rotation.Adapter
	state    *rotation.State
	cfg      Config
	clk      clock.Clock
	ticklers *TicklerQueue

	randFloat func() float64

	pending      *intent.DJIntent
	pendingDelta rotation.Delta

	startupAnnouncement *events.AudioEvent
}

// New returns a Core ready to run THINK/DO cycles.
func New(adapter rotation.Adapter, state *rotation.State, cfg Config, clk clock.Clock) *Core {
	return &Core{
		adapter:   adapter,
		state:     state,
		cfg:       cfg,
		clk:       clk,
		ticklers:  NewTicklerQueue(),
		randFloat: rand.Float64,
	}
}

// Ticklers exposes the tickler queue for whatever background worker drains
// it between THINK windows.
func (c *Core) Ticklers() *TicklerQueue {
	return c.ticklers
}

// Think runs the segment_started contract. segment is nil exactly once, at
// true process bootstrap, before any segment has ever started.
func (c *Core) Think(segment *events.AudioEvent, lc LifecycleView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lc.IsDraining() {
		if lc.TerminalLatched() {
			return
		}
		ann, _ := c.adapter.PickAnnouncement()
		c.pending = intent.NewTerminal(announcementEvent(ann))
		c.pendingDelta = rotation.Delta{}
		lc.LatchTerminal()
		return
	}

	if lc.ConsumeStartupAnnouncement() {
		if ann, ok := c.adapter.StartupAnnouncement(); ok {
			e := ann.AudioEvent(1.0)
			c.startupAnnouncement = &e
			return
		}
		// No startup announcement configured: fall through and compose the
		// first real break now, same as any other bootstrap THINK call, so
		// the no-announcement startup path in Do has something to execute.
	}

	if lc.NormalOperation() && (segment == nil || segment.Tag != events.TagSong) {
		return
	}

	exclude := c.state.CurrentSong()
	if segment != nil && segment.Tag == events.TagSong {
		exclude = segment.Path
	}
	c.pending, c.pendingDelta = c.composeBreak(exclude)
}

// TakeStartupAnnouncement returns the announcement THINK selected during
// bootstrap, if any, for the engine to inject directly as the active
// segment. It is never enqueued through DO.
func (c *Core) TakeStartupAnnouncement() (*events.AudioEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.startupAnnouncement
	c.startupAnnouncement = nil
	if e == nil {
		return nil, false
	}
	return e, true
}

// composeBreak applies the legal-ID/talk/generic-ID/intro decision cascade
// and resolves every slot to an existing file, dropping missing optional
// slots silently. A missing mandatory next song falls back to a bare
// fallback-tagged event so the intent is never unplayable.
func (c *Core) composeBreak(excludeSongPath string) (*intent.DJIntent, rotation.Delta) {
	now := c.clk.Now()
	delta := rotation.Delta{At: now}

	var ids []events.AudioEvent
	hasLegalID := false

	legalIDRequired := c.state.SinceLegalID(now) >= c.cfg.LegalIDInterval
	talkAllowed := false
	if !legalIDRequired {
		sinceTalk := c.state.SinceTalk(now)
		if sinceTalk < c.cfg.MinTalkSpacing {
			talkAllowed = false
		} else if sinceTalk >= c.cfg.MaxTalkSilence {
			talkAllowed = true
		} else {
			talkAllowed = c.randFloat() < c.cfg.TalkRandomAllowChance
		}
	}

	switch {
	case legalIDRequired:
		if t, ok := c.adapter.PickLegalID(); ok {
			ids = append(ids, t.AudioEvent(1.0))
			hasLegalID = true
			delta.LegalIDPlayed = true
		}
	case talkAllowed:
		if t, ok := c.adapter.PickTalk(); ok {
			e := t.AudioEvent(1.0)
			e.Tag = events.TagTalk
			ids = append(ids, e)
			delta.TalkPlayed = true
		}
	default:
		if c.state.SinceGenericID(now) >= c.cfg.GenericIDMin {
			if t, ok := c.adapter.PickGenericID(); ok {
				ids = append(ids, t.AudioEvent(1.0))
				delta.GenericIDPlayed = true
			}
		}
	}

	var outro *events.AudioEvent
	if t, ok := c.adapter.PickOutro(); ok {
		e := t.AudioEvent(1.0)
		outro = &e
	}

	nextSong, err := c.adapter.NextSong(excludeSongPath)
	var songEvent events.AudioEvent
	if err != nil || nextSong == nil {
		songEvent = events.AudioEvent{Path: "", Tag: events.TagFallback, Gain: 1.0}
	} else {
		songEvent = nextSong.AudioEvent(1.0)
		delta.PlayedSongPath = nextSong.FilePath
	}

	// The intro plays right before the next song, so a per-song intro is
	// matched against that song.
	var intro *events.AudioEvent
	if t, ok := c.adapter.PickIntro(songEvent.Path, c.state.IntroOnCooldown); ok {
		e := t.AudioEvent(1.0)
		intro = &e
		delta.IntroPathUsed = t.FilePath
	}

	return intent.NewNonTerminal(songEvent, outro, intro, ids, hasLegalID), delta
}

// Do runs the segment_finished contract: retrieve the THINK result, fold
// its recorded metadata into rotation state, schedule follow-up ticklers,
// and hand the intent to the caller to enqueue.
func (c *Core) Do(lc LifecycleView) (*intent.DJIntent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Draining wins regardless of what THINK already queued: a non-terminal
	// intent composed before shutdown was triggered must never execute once
	// DRAINING is in effect. A terminal intent THINK already built is the
	// one DO executes.
	if lc.IsDraining() {
		if c.pending != nil && c.pending.IsTerminal {
			result := c.pending
			c.pending = nil
			c.pendingDelta = rotation.Delta{}
			return result, nil
		}
		if lc.TerminalLatched() {
			return nil, nil
		}
		c.pending = nil
		c.pendingDelta = rotation.Delta{}
		ann, _ := c.adapter.PickAnnouncement()
		result := intent.NewTerminal(announcementEvent(ann))
		lc.LatchTerminal()
		return result, nil
	}

	if c.pending == nil {
		return nil, ErrNoPendingIntent
	}

	result := c.pending
	delta := c.pendingDelta
	c.pending = nil
	c.pendingDelta = rotation.Delta{}

	if !result.IsTerminal {
		c.state.Apply(delta)
		c.state.TrimIntroCooldown(c.cfg.CooldownLen)
		if result.NextSong != nil {
			c.ticklers.Schedule(Tickler{Kind: TicklerRegenerateIntro, SongPath: result.NextSong.Path})
		}
	}

	return result, nil
}

func announcementEvent(t *rotation.Track) *events.AudioEvent {
	if t == nil {
		return nil
	}
	e := t.AudioEvent(1.0)
	e.Terminal = true
	return &e
}
