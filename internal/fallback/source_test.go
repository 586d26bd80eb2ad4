package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

func TestSilence_ReadFrame_IsAllZero(t *testing.T) {
	s := Silence{}
	frame := s.ReadFrame()
	assert.Len(t, frame, audioformat.FrameBytes)
	assert.Equal(t, audioformat.NewSilentFrame(), frame)
	assert.Equal(t, "silence", s.Mode())
}

func TestTone_ReadFrame_ProducesFullSizedFrame(t *testing.T) {
	tone := NewTone(440)
	frame := tone.ReadFrame()
	assert.Len(t, frame, audioformat.FrameBytes)
	assert.Equal(t, "tone", tone.Mode())

	nonZero := false
	for _, b := range frame {
		if b != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "a sine tone frame should not be silent")
}

func TestTone_PhaseIsContinuousAcrossFrames(t *testing.T) {
	tone := NewTone(440)
	first := tone.ReadFrame()
	second := tone.ReadFrame()
	assert.NotEqual(t, first, second, "consecutive frames of a continuous tone should differ")
}

func TestTone_SetFrequencyDoesNotResetPhase(t *testing.T) {
	tone := NewTone(440)
	tone.ReadFrame()
	phaseBefore := tone.phase
	tone.SetFrequency(880)
	assert.Equal(t, phaseBefore, tone.phase)
}

type constSource struct{ mode string }

func (c constSource) ReadFrame() []byte { return audioformat.NewSilentFrame() }
func (c constSource) Mode() string      { return c.mode }

func TestManager_SetSwapsActiveSourceAtomically(t *testing.T) {
	m := NewManager(constSource{"a"})
	assert.Equal(t, "a", m.Mode())

	m.Set(constSource{"b"})
	assert.Equal(t, "b", m.Mode())
}

func TestManager_FilePathEmptyForNonFileSource(t *testing.T) {
	m := NewManager(Silence{})
	assert.Equal(t, "", m.FilePath())
}
