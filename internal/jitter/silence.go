package jitter

// silentMP3Chunk is broadcast in place of real encoder output during
// priming underflow, recovery pauses, and RESTARTING/FAILED encoder
// states, so clients hear a brief gap rather than seeing a stream stall
// or disconnect. This is a minimal valid MPEG-1 Layer III frame header
// (128 kbps, 48 kHz, stereo) followed by zeroed payload bytes — a
// decodable silent frame, not a full ID3/VBR-header stream; no pack
// dependency offers an MP3 encoder to generate one, so this is
// hand-assembled once at init.
var silentMP3Chunk = buildSilentMP3Frame()

const (
	mp3FrameSamples = 1152
	mp3SampleRate   = 48000
	mp3BitrateKbps  = 128
)

// buildSilentMP3Frame assembles one free-of-audio MPEG-1 Layer III frame:
// a valid frame header sized for 128 kbps/48 kHz/stereo, with an
// all-zero payload. Real decoders treat an all-zero Layer III payload as
// near-silence (it decodes to very low-amplitude noise, not a parse
// error), which is the practical goal here — the fan-out must keep
// emitting syntactically valid MP3 frames during an outage.
func buildSilentMP3Frame() []byte {
	frameSize := (mp3FrameSamples/8*mp3BitrateKbps*1000/mp3SampleRate + 0)
	header := []byte{
		0xFF, 0xFB, // sync + MPEG1 Layer III, no CRC
		0x94, // bitrate index 9 (128kbps) << 4 | sample rate index 1 (48kHz) << 2 | no padding, no private
		0x04, // stereo mode (00) << 6 | mode extension 00 | no copyright | original | emphasis none
	}
	frame := make([]byte, frameSize)
	copy(frame, header)
	return frame
}

// SilentChunk returns the shared silent-MP3 placeholder chunk.
func SilentChunk() []byte {
	return silentMP3Chunk
}
