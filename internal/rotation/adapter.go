package rotation

import (
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

// ErrNoCandidates is returned when a pool has no playable (existing-file)
// entries to choose from.
var ErrNoCandidates = errors.New("rotation: no candidates available")

// Adapter is THINK's sole I/O-free collaborator for segment selection. It
// must not block on anything heavier than a file existence check — no
// network calls, no TTS generation (that belongs behind a tickler).
type Adapter interface {
	// NextSong returns the next song to play, excluding excludePath (the
	// currently playing song). THINK does not re-check that the returned
	// file exists.
	NextSong(excludePath string) (*Track, error)
	PickIntro(songPath string, onCooldown func(path string) bool) (*Track, bool)
	PickOutro() (*Track, bool)
	PickGenericID() (*Track, bool)
	PickLegalID() (*Track, bool)
	PickTalk() (*Track, bool)
	// PickAnnouncement returns a randomly chosen announcement from the
	// shutdown pool, used for the terminal intent.
	PickAnnouncement() (*Track, bool)
	StartupAnnouncement() (*Track, bool)
}

// LibraryAdapter is the default Adapter, backed by a Library scanned from
// disk. Song selection round-robins through the song pool in file-path
// order (deterministic and cheap, like the teacher's Playlist.Next()
// cursor); every other pool picks uniformly at random, falling back through
// the pool in order when the random pick's file has gone missing, mirroring
// MasterPlaylist.Next()'s fallback-across-tags cycling.
type LibraryAdapter struct {
	lib *Library

	mu        sync.Mutex
	songIndex int

	rng *rand.Rand
}

// NewLibraryAdapter wraps lib in an Adapter.
func NewLibraryAdapter(lib *Library) *LibraryAdapter {
	return &LibraryAdapter{
		lib: lib,
		rng: rand.New(rand.NewSource(randSeed())),
	}
}

func (a *LibraryAdapter) NextSong(excludePath string) (*Track, error) {
	pool := a.lib.Pool(events.TagSong)
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < len(pool); i++ {
		idx := (a.songIndex + i) % len(pool)
		t := pool[idx]
		if t.FilePath == excludePath {
			continue
		}
		if !t.FileExists() {
			continue
		}
		a.songIndex = (idx + 1) % len(pool)
		return t, nil
	}

	// Every candidate was either the excluded song or missing on disk; if
	// there's exactly one song total and it's the one playing, replay it
	// rather than stall the break.
	if pool[0].FileExists() {
		return pool[0], nil
	}
	return nil, ErrNoCandidates
}

func (a *LibraryAdapter) pickRandomExisting(tag events.Tag) (*Track, bool) {
	pool := a.lib.Pool(tag)
	if len(pool) == 0 {
		return nil, false
	}
	start := a.rng.Intn(len(pool))
	for i := 0; i < len(pool); i++ {
		t := pool[(start+i)%len(pool)]
		if t.FileExists() {
			return t, true
		}
	}
	return nil, false
}

// PickIntro prefers an intro whose filename stem names songPath's stem
// (a per-song intro, e.g. "song.mp3" / "song.intro.mp3"), falling back to
// any generic intro. Both preferences honor onCooldown, and both fall back
// further to an off-cooldown-ignoring pick rather than skip the intro slot
// entirely.
func (a *LibraryAdapter) PickIntro(songPath string, onCooldown func(path string) bool) (*Track, bool) {
	pool := a.lib.Pool(events.TagIntro)
	if len(pool) == 0 {
		return nil, false
	}

	stem := songStem(songPath)
	start := a.rng.Intn(len(pool))

	var firstPerSong, firstGeneric *Track
	for i := 0; i < len(pool); i++ {
		t := pool[(start+i)%len(pool)]
		if !t.FileExists() {
			continue
		}
		if onCooldown != nil && onCooldown(t.FilePath) {
			continue
		}
		if stem != "" && firstPerSong == nil && strings.Contains(songStem(t.FilePath), stem) {
			firstPerSong = t
		}
		if firstGeneric == nil {
			firstGeneric = t
		}
	}
	if firstPerSong != nil {
		return firstPerSong, true
	}
	if firstGeneric != nil {
		return firstGeneric, true
	}
	// Every intro is on cooldown or missing: fall back to any existing one
	// rather than playing no intro at all.
	return a.pickRandomExisting(events.TagIntro)
}

func songStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *LibraryAdapter) PickOutro() (*Track, bool) {
	return a.pickRandomExisting(events.TagOutro)
}

// PickGenericID and PickLegalID draw from the same TagID pool: the decision
// cascade that calls them already guarantees mutual exclusivity (at most
// one of legal/talk/generic fills the break's ID slot), so a single pool
// tagged by content type rather than by legal-vs-generic is sufficient.
func (a *LibraryAdapter) PickGenericID() (*Track, bool) {
	return a.pickRandomExisting(events.TagID)
}

func (a *LibraryAdapter) PickLegalID() (*Track, bool) {
	return a.pickRandomExisting(events.TagID)
}

func (a *LibraryAdapter) PickTalk() (*Track, bool) {
	return a.pickRandomExisting(events.TagTalk)
}

func (a *LibraryAdapter) PickAnnouncement() (*Track, bool) {
	return a.pickRandomExisting(events.TagAnnouncement)
}

func (a *LibraryAdapter) StartupAnnouncement() (*Track, bool) {
	return a.pickRandomExisting(events.TagAnnouncement)
}
