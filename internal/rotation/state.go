package rotation

import (
	"sync"
	"time"
)

// Delta describes the bookkeeping DO commits after a break's events finish
// enqueuing, derived strictly from metadata recorded in the intent during
// THINK — DO never makes new decisions, it only folds the delta in.
type Delta struct {
	PlayedSongPath  string
	LegalIDPlayed   bool
	GenericIDPlayed bool
	TalkPlayed      bool
	IntroPathUsed   string
	At              time.Time
}

// State is the DJ's single owned mutable value: rotation history, cooldown
// lists, and "last played of kind" timestamps. THINK reads it to decide;
// DO calls Apply to fold in a Delta once a break has actually been queued.
type State struct {
	mu sync.RWMutex

	CurrentSongPath string
	SongHistory     []string // most-recently-played first, capped

	LastLegalID   time.Time
	LastGenericID time.Time
	LastTalk      time.Time

	IntroCooldown []string // most-recently-used first, capped at cooldownLen
}

// NewState returns a State with no history — every "last played" timestamp
// is the zero time, meaning "infinitely long ago" for interval comparisons.
func NewState() *State {
	return &State{}
}

// Apply folds a Delta into the state. Safe for concurrent use, though in
// practice only the single DJ/engine thread calls it (spec §4.1/§5).
func (s *State) Apply(d Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.PlayedSongPath != "" {
		s.CurrentSongPath = d.PlayedSongPath
		s.SongHistory = append([]string{d.PlayedSongPath}, s.SongHistory...)
		const maxHistory = 200
		if len(s.SongHistory) > maxHistory {
			s.SongHistory = s.SongHistory[:maxHistory]
		}
	}
	if d.LegalIDPlayed {
		s.LastLegalID = d.At
	}
	if d.GenericIDPlayed {
		s.LastGenericID = d.At
	}
	if d.TalkPlayed {
		s.LastTalk = d.At
	}
	if d.IntroPathUsed != "" {
		s.IntroCooldown = append([]string{d.IntroPathUsed}, s.IntroCooldown...)
	}
}

// TrimIntroCooldown caps the cooldown list at n entries. Called with the
// configured cooldown_len after Apply.
func (s *State) TrimIntroCooldown(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if len(s.IntroCooldown) > n {
		s.IntroCooldown = s.IntroCooldown[:n]
	}
}

// CurrentSong returns the path of the song currently playing, used to
// exclude it from the next selection.
func (s *State) CurrentSong() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentSongPath
}

// SinceLegalID returns the elapsed time since the last legal ID, treating a
// zero LastLegalID as "longer than any interval".
func (s *State) SinceLegalID(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastLegalID.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.LastLegalID)
}

// SinceGenericID mirrors SinceLegalID for generic IDs.
func (s *State) SinceGenericID(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastGenericID.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.LastGenericID)
}

// SinceTalk mirrors SinceLegalID for talk segments.
func (s *State) SinceTalk(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastTalk.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.LastTalk)
}

// IntroOnCooldown reports whether path appears anywhere in the current
// intro cooldown list.
func (s *State) IntroOnCooldown(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.IntroCooldown {
		if p == path {
			return true
		}
	}
	return false
}

// Snapshot returns a value copy safe to serialize, for persistence.
func (s *State) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		CurrentSongPath: s.CurrentSongPath,
		SongHistory:     append([]string(nil), s.SongHistory...),
		LastLegalID:     s.LastLegalID,
		LastGenericID:   s.LastGenericID,
		LastTalk:        s.LastTalk,
		IntroCooldown:   append([]string(nil), s.IntroCooldown...),
	}
}

// Restore replaces the state's contents with a previously-saved snapshot.
func (s *State) Restore(snap StateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentSongPath = snap.CurrentSongPath
	s.SongHistory = snap.SongHistory
	s.LastLegalID = snap.LastLegalID
	s.LastGenericID = snap.LastGenericID
	s.LastTalk = snap.LastTalk
	s.IntroCooldown = snap.IntroCooldown
}

// StateSnapshot is the JSON-serialisable projection of State, used by Store.
type StateSnapshot struct {
	CurrentSongPath string    `json:"currentSongPath,omitempty"`
	SongHistory     []string  `json:"songHistory,omitempty"`
	LastLegalID     time.Time `json:"lastLegalId,omitempty"`
	LastGenericID   time.Time `json:"lastGenericId,omitempty"`
	LastTalk        time.Time `json:"lastTalk,omitempty"`
	IntroCooldown   []string  `json:"introCooldown,omitempty"`
}
