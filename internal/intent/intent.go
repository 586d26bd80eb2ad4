// Package intent defines DJIntent, the immutable, single-consumption plan
// for exactly one break, produced by THINK and consumed by DO.
package intent

import (
	"github.com/google/uuid"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

// DJIntent is created at most once per segment-started callback and must be
// consumed at most once per segment-finished callback.
type DJIntent struct {
	ID string

	// NextSong is required for non-terminal intents; terminal intents carry
	// no NextSong.
	NextSong *events.AudioEvent
	Outro    *events.AudioEvent
	IDs      []events.AudioEvent
	Intro    *events.AudioEvent

	// HasLegalID is derived in THINK: true when IDs contains a legal ID.
	HasLegalID bool
	IsTerminal bool

	// ShutdownAnnouncement is set only on terminal intents, and only when a
	// shutdown announcement was configured and its file resolved.
	ShutdownAnnouncement *events.AudioEvent
}

// newID allocates a fresh intent ID. Each intent constructor calls it
// exactly once.
func newID() string {
	return uuid.NewString()
}

// NewNonTerminal builds a non-terminal intent, propagating a freshly
// generated ID onto every contained event.
func NewNonTerminal(nextSong events.AudioEvent, outro, intro *events.AudioEvent, ids []events.AudioEvent, hasLegalID bool) *DJIntent {
	id := newID()

	song := nextSong.WithIntentID(id)

	var outroCopy *events.AudioEvent
	if outro != nil {
		e := outro.WithIntentID(id)
		outroCopy = &e
	}
	var introCopy *events.AudioEvent
	if intro != nil {
		e := intro.WithIntentID(id)
		introCopy = &e
	}
	idsCopy := make([]events.AudioEvent, len(ids))
	for i, e := range ids {
		idsCopy[i] = e.WithIntentID(id)
	}

	return &DJIntent{
		ID:         id,
		NextSong:   &song,
		Outro:      outroCopy,
		IDs:        idsCopy,
		Intro:      introCopy,
		HasLegalID: hasLegalID,
	}
}

// NewTerminal builds a terminal intent. announcement may be nil when no
// shutdown announcement is configured or none of its candidate files exist.
func NewTerminal(announcement *events.AudioEvent) *DJIntent {
	id := newID()
	var ann *events.AudioEvent
	if announcement != nil {
		e := announcement.WithIntentID(id)
		ann = &e
	}
	return &DJIntent{
		ID:                   id,
		IsTerminal:           true,
		ShutdownAnnouncement: ann,
	}
}

// Events expands the intent into the ordered sequence of AudioEvents DO
// enqueues: [outro?, …ids, intro?, next_song] for a normal break, or
// [shutdown_announcement?] for a terminal intent.
func (i *DJIntent) Events() []events.AudioEvent {
	if i.IsTerminal {
		if i.ShutdownAnnouncement == nil {
			return nil
		}
		return []events.AudioEvent{*i.ShutdownAnnouncement}
	}

	out := make([]events.AudioEvent, 0, len(i.IDs)+3)
	if i.Outro != nil {
		out = append(out, *i.Outro)
	}
	out = append(out, i.IDs...)
	if i.Intro != nil {
		out = append(out, *i.Intro)
	}
	if i.NextSong != nil {
		out = append(out, *i.NextSong)
	}
	return out
}
