// Package lifecycle implements the Station lifecycle state machine:
// BOOTSTRAP → STARTUP_ANNOUNCEMENT_PLAYING → STARTUP_THINK_COMPLETE →
// STARTUP_DO_ENQUEUE → NORMAL_OPERATION → DRAINING → STOPPED.
package lifecycle

import (
	"context"
	"sync"
)

// State names one point in the startup/normal/draining progression.
type State int

const (
	Bootstrap State = iota
	StartupAnnouncementPlaying
	StartupThinkComplete
	StartupDoEnqueue
	NormalOperation
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Bootstrap:
		return "BOOTSTRAP"
	case StartupAnnouncementPlaying:
		return "STARTUP_ANNOUNCEMENT_PLAYING"
	case StartupThinkComplete:
		return "STARTUP_THINK_COMPLETE"
	case StartupDoEnqueue:
		return "STARTUP_DO_ENQUEUE"
	case NormalOperation:
		return "NORMAL_OPERATION"
	case Draining:
		return "DRAINING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Controller owns the lifecycle state plus the draining and
// terminal-intent-queued latches, which per spec.md §3 only ever clear on
// process restart. It satisfies djcore.LifecycleView structurally.
type Controller struct {
	mu sync.Mutex

	state State

	startupWanted   bool
	drainingLatch   bool
	terminalLatched bool

	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewController returns a Controller in BOOTSTRAP. startupAnnouncementConfigured
// is the initial value of the startup flag THINK consumes at most once.
func NewController(startupAnnouncementConfigured bool) *Controller {
	return &Controller{
		state:         Bootstrap,
		startupWanted: startupAnnouncementConfigured,
		stopCh:        make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// EnterStartupAnnouncementPlaying transitions from BOOTSTRAP once THINK has
// selected (or declined) a startup announcement and it has been injected as
// the active segment.
func (c *Controller) EnterStartupAnnouncementPlaying() { c.setState(StartupAnnouncementPlaying) }

// EnterStartupThinkComplete transitions once the startup announcement
// segment has started and THINK has composed the first real break.
func (c *Controller) EnterStartupThinkComplete() { c.setState(StartupThinkComplete) }

// EnterStartupDoEnqueue transitions once the startup announcement segment
// finishes and DO is about to run for the first time.
func (c *Controller) EnterStartupDoEnqueue() { c.setState(StartupDoEnqueue) }

// EnterNormalOperation transitions on the first music event's start.
func (c *Controller) EnterNormalOperation() { c.setState(NormalOperation) }

// TriggerDraining sets the draining latch and moves to DRAINING. Idempotent:
// a second call (e.g. a second shutdown signal) is a no-op for state
// purposes — callers needing "force immediate termination" semantics for a
// repeated signal must check IsDraining() themselves before calling this
// again.
func (c *Controller) TriggerDraining() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainingLatch = true
	c.state = Draining
}

// IsDraining reports the draining latch, per djcore.LifecycleView.
func (c *Controller) IsDraining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainingLatch
}

// TerminalLatched reports whether a terminal intent has already been
// committed, per djcore.LifecycleView.
func (c *Controller) TerminalLatched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminalLatched
}

// LatchTerminal records that a terminal intent now exists.
func (c *Controller) LatchTerminal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminalLatched = true
}

// ConsumeStartupAnnouncement returns true exactly once — while still in
// BOOTSTRAP with the startup flag set — then clears the flag.
func (c *Controller) ConsumeStartupAnnouncement() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Bootstrap || !c.startupWanted {
		return false
	}
	c.startupWanted = false
	return true
}

// NormalOperation reports whether the engine has passed the startup state
// machine, gating djcore's song-triggered skip rule.
func (c *Controller) NormalOperation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == NormalOperation || c.state == Draining || c.state == Stopped
}

// EnterStopped marks the engine fully stopped and unblocks every
// WaitStopped caller.
func (c *Controller) EnterStopped() {
	c.setState(Stopped)
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// WaitStopped blocks until EnterStopped is called or ctx is done, whichever
// comes first.
func (c *Controller) WaitStopped(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
