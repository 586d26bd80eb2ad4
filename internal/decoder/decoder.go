// Package decoder adapts an out-of-process audio decoder (ffmpeg) into a
// source of fixed-size s16le PCM frames for the playout engine.
package decoder

// Decoder yields fixed-size PCM frames from a single audio file, in order,
// until exhausted.
type Decoder interface {
	// ReadFrame returns the next audioformat.FrameBytes-sized frame. The
	// final frame of a file whose PCM length isn't an exact multiple of
	// the frame size is zero-padded rather than discarded, so the pacer's
	// cadence is never shortened by a dropped partial frame. ReadFrame
	// returns io.EOF once every frame (including any padded final one) has
	// been delivered.
	ReadFrame() ([]byte, error)
	// Close releases the decoder's resources (subprocess, pipes).
	Close() error
}
