// Package fallback implements Tower's always-available PCM generator
// (§4.5): a continuous sine tone, digital silence, or a looped WAV file,
// swappable at runtime under the control-plane's source lock so the
// broadcast never stops even with no live producer.
package fallback

import (
	"math"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// Source produces one well-formed audioformat.FrameBytes-sized PCM frame
// per call, synchronously and cheaply, as the audio pump's last-resort
// tier of source arbitration.
type Source interface {
	ReadFrame() []byte
	Mode() string
}

// Silence is a Source that always returns digital silence.
type Silence struct{}

func (Silence) ReadFrame() []byte { return audioformat.NewSilentFrame() }
func (Silence) Mode() string      { return "silence" }

// Tone is a Source generating a continuous sine wave at a fixed
// frequency, phase-continuous across frames so consecutive reads splice
// without an audible discontinuity at frame boundaries (generateBeep's
// table-based approach only produces a fixed-length buffer; this
// generalizes it to an unbounded stream by tracking phase instead of a
// sample index into a pre-rendered table).
type Tone struct {
	frequencyHz float64
	amplitude   float64
	phase       float64
}

// NewTone returns a Tone at frequencyHz, at 20% of full-scale amplitude.
func NewTone(frequencyHz float64) *Tone {
	return &Tone{frequencyHz: frequencyHz, amplitude: 0.2}
}

func (t *Tone) ReadFrame() []byte {
	frame := make([]byte, audioformat.FrameBytes)
	peak := t.amplitude * 32767.0
	step := 2.0 * math.Pi * t.frequencyHz / float64(audioformat.SampleRate)

	for i := 0; i < audioformat.FrameSamples; i++ {
		sample := int16(peak * math.Sin(t.phase))
		t.phase += step
		if t.phase > 2.0*math.Pi {
			t.phase -= 2.0 * math.Pi
		}

		off := i * audioformat.BytesPerSample * audioformat.Channels
		frame[off] = byte(sample)
		frame[off+1] = byte(sample >> 8)
		frame[off+2] = byte(sample)
		frame[off+3] = byte(sample >> 8)
	}

	return frame
}

func (t *Tone) Mode() string { return "tone" }

// SetFrequency changes the tone's pitch without resetting phase
// continuity, so a runtime control-plane update doesn't click.
func (t *Tone) SetFrequency(hz float64) { t.frequencyHz = hz }
