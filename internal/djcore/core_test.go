package djcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/events"
	"github.com/slbailey/retrowaves-sub001/internal/rotation"
)

// fakeAdapter is a rotation.Adapter test double with one canned track per
// pool, each controllable via a present bool.
type fakeAdapter struct {
	song, intro, outro, genericID, legalID, talk, announcement, startup *rotation.Track

	nextSongErr error
}

func track(path string, tag events.Tag) *rotation.Track {
	return &rotation.Track{FilePath: path, Title: path, Tag: tag}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		song:         track("/lib/song-a.mp3", events.TagSong),
		intro:        track("/lib/generic-intro.mp3", events.TagIntro),
		outro:        track("/lib/outro.mp3", events.TagOutro),
		genericID:    track("/lib/generic-id.mp3", events.TagID),
		legalID:      track("/lib/legal-id.mp3", events.TagID),
		talk:         track("/lib/talk.mp3", events.TagTalk),
		announcement: track("/lib/shutdown.mp3", events.TagAnnouncement),
		startup:      track("/lib/startup.mp3", events.TagAnnouncement),
	}
}

func (a *fakeAdapter) NextSong(exclude string) (*rotation.Track, error) {
	if a.nextSongErr != nil {
		return nil, a.nextSongErr
	}
	return a.song, nil
}
func (a *fakeAdapter) PickIntro(songPath string, onCooldown func(string) bool) (*rotation.Track, bool) {
	if a.intro == nil {
		return nil, false
	}
	return a.intro, true
}
func (a *fakeAdapter) PickOutro() (*rotation.Track, bool) {
	if a.outro == nil {
		return nil, false
	}
	return a.outro, true
}
func (a *fakeAdapter) PickGenericID() (*rotation.Track, bool) {
	if a.genericID == nil {
		return nil, false
	}
	return a.genericID, true
}
func (a *fakeAdapter) PickLegalID() (*rotation.Track, bool) {
	if a.legalID == nil {
		return nil, false
	}
	return a.legalID, true
}
func (a *fakeAdapter) PickTalk() (*rotation.Track, bool) {
	if a.talk == nil {
		return nil, false
	}
	return a.talk, true
}
func (a *fakeAdapter) PickAnnouncement() (*rotation.Track, bool) {
	if a.announcement == nil {
		return nil, false
	}
	return a.announcement, true
}
func (a *fakeAdapter) StartupAnnouncement() (*rotation.Track, bool) {
	if a.startup == nil {
		return nil, false
	}
	return a.startup, true
}

// fakeLifecycle is a manually driven LifecycleView test double.
type fakeLifecycle struct {
	draining         bool
	terminalLatched  bool
	wantStartupAnnc  bool
	normalOperation  bool
}

func (f *fakeLifecycle) IsDraining() bool       { return f.draining }
func (f *fakeLifecycle) TerminalLatched() bool  { return f.terminalLatched }
func (f *fakeLifecycle) LatchTerminal()         { f.terminalLatched = true }
func (f *fakeLifecycle) NormalOperation() bool  { return f.normalOperation }
func (f *fakeLifecycle) ConsumeStartupAnnouncement() bool {
	if !f.wantStartupAnnc {
		return false
	}
	f.wantStartupAnnc = false
	return true
}

func newCore(a rotation.Adapter) (*Core, *clock.Fake) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New(a, rotation.NewState(), DefaultConfig(), fc)
	c.randFloat = func() float64 { return 1.0 } // never land in the random-allow band by default
	return c, fc
}

func TestThink_Bootstrap_SelectsStartupAnnouncementOnly(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{wantStartupAnnc: true}

	c.Think(nil, lc)

	ann, ok := c.TakeStartupAnnouncement()
	require.True(t, ok)
	assert.Equal(t, a.startup.FilePath, ann.Path)

	// Think stored no DJIntent for this cycle — DO must not run yet.
	_, err := c.Do(lc)
	assert.ErrorIs(t, err, ErrNoPendingIntent)
}

func TestThink_StartupState_ComposesFirstBreakEvenForNonSong(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: false}

	startupSeg := &events.AudioEvent{Path: a.startup.FilePath, Tag: events.TagAnnouncement}
	c.Think(startupSeg, lc)

	result, err := c.Do(lc)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsTerminal)
	require.NotNil(t, result.NextSong)
	assert.Equal(t, a.song.FilePath, result.NextSong.Path)
}

func TestThink_NormalOperation_SkipsNonSongSegments(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	introSeg := &events.AudioEvent{Path: a.intro.FilePath, Tag: events.TagIntro}
	c.Think(introSeg, lc)

	_, err := c.Do(lc)
	assert.ErrorIs(t, err, ErrNoPendingIntent)
}

func TestThink_LegalIDRequired_SuppressesTalk(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)

	result, err := c.Do(lc)
	require.NoError(t, err)
	require.True(t, result.HasLegalID)
	require.Len(t, result.IDs, 1)
	assert.Equal(t, a.legalID.FilePath, result.IDs[0].Path)
}

func TestThink_AllEventsShareIntentID(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)
	result, err := c.Do(lc)
	require.NoError(t, err)

	for _, e := range result.Events() {
		assert.Equal(t, result.ID, e.IntentID)
	}
}

func TestDo_UpdatesRotationState(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)
	result, err := c.Do(lc)
	require.NoError(t, err)
	require.NotNil(t, result)

	state := c.state
	assert.Equal(t, a.song.FilePath, state.CurrentSong())
	assert.True(t, state.IntroOnCooldown(a.intro.FilePath))
}

func TestThink_DrainingLatchesTerminalOnce(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{draining: true}

	c.Think(nil, lc)
	require.True(t, lc.terminalLatched)
	result, err := c.Do(lc)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsTerminal)
	assert.Equal(t, a.announcement.FilePath, result.ShutdownAnnouncement.Path)

	// A second segment_started while already latched does nothing further.
	c.Think(nil, lc)
	result2, err := c.Do(lc)
	require.NoError(t, err)
	assert.Nil(t, result2)
}

func TestDo_NoThinkResult_ReturnsError(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	_, err := c.Do(lc)
	assert.ErrorIs(t, err, ErrNoPendingIntent)
}

func TestDo_DrainingDiscardsAlreadyPendingNonTerminalIntent(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	// THINK composes the next non-terminal break before draining begins.
	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)
	require.NotNil(t, c.pending)

	// Shutdown is triggered while that break is still pending.
	lc.draining = true

	result, err := c.Do(lc)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsTerminal, "DO must execute the terminal shutdown intent, not the stale non-terminal one")
	assert.Equal(t, a.announcement.FilePath, result.ShutdownAnnouncement.Path)
	assert.True(t, lc.terminalLatched)

	// The stale pending intent must not resurface on a later DO call.
	result2, err := c.Do(lc)
	require.NoError(t, err)
	assert.Nil(t, result2)
}

func TestThink_BootstrapWithNoStartupAnnouncementConfigured_ComposesFirstBreak(t *testing.T) {
	a := newFakeAdapter()
	a.startup = nil
	c, _ := newCore(a)
	lc := &fakeLifecycle{wantStartupAnnc: true}

	c.Think(nil, lc)

	_, ok := c.TakeStartupAnnouncement()
	assert.False(t, ok)

	result, err := c.Do(lc)
	require.NoError(t, err, "bootstrap THINK must compose the first break even when no startup announcement is configured")
	require.NotNil(t, result)
	assert.False(t, result.IsTerminal)
}

func TestDo_SchedulesIntroRegenerationTickler(t *testing.T) {
	a := newFakeAdapter()
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)
	_, err := c.Do(lc)
	require.NoError(t, err)

	ticklers := c.Ticklers().Drain()
	require.Len(t, ticklers, 1)
	assert.Equal(t, TicklerRegenerateIntro, ticklers[0].Kind)
	assert.Equal(t, a.song.FilePath, ticklers[0].SongPath)
}

func TestThink_MissingNextSong_FallsBackSafely(t *testing.T) {
	a := newFakeAdapter()
	a.nextSongErr = rotation.ErrNoCandidates
	c, _ := newCore(a)
	lc := &fakeLifecycle{normalOperation: true}

	songSeg := &events.AudioEvent{Path: a.song.FilePath, Tag: events.TagSong}
	c.Think(songSeg, lc)
	result, err := c.Do(lc)
	require.NoError(t, err)
	require.NotNil(t, result.NextSong)
	assert.Equal(t, events.TagFallback, result.NextSong.Tag)
}
