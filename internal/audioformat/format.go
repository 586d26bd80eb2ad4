// Package audioformat defines the fixed PCM wire format shared by Station and
// Tower: signed 16-bit little-endian, stereo, 48 kHz, 1024-sample frames.
package audioformat

import "time"

const (
	// SampleRate is the canonical sample rate in Hz.
	SampleRate = 48000
	// Channels is the canonical channel count (stereo).
	Channels = 2
	// BytesPerSample is the width of one s16le sample.
	BytesPerSample = 2
	// FrameSamples is the nominal frame size in samples per channel.
	FrameSamples = 1024
	// FrameBytes is the size in bytes of one PCM frame: 1024 * 2 * 2.
	FrameBytes = FrameSamples * Channels * BytesPerSample
)

// FramePeriod is the wall-clock duration one frame represents:
// 1024 / 48000 s ≈ 21.333ms.
var FramePeriod = time.Duration(FrameSamples) * time.Second / time.Duration(SampleRate)

// NewSilentFrame returns a zeroed PCM frame of the canonical size.
func NewSilentFrame() []byte {
	return make([]byte, FrameBytes)
}
