package fallback

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// buildWAV assembles a minimal canonical PCM WAV file: RIFF/WAVE header,
// one fmt chunk, one data chunk.
func buildWAV(t *testing.T, sampleRate, channels, bitsPerSample uint32, pcm []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := uint16(channels * (bitsPerSample / 8))

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(channels))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(byteRate))
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(bitsPerSample))

	dataSize := uint32(len(pcm))
	riffSize := uint32(4) + (8 + uint32(fmtChunk.Len())) + (8 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}

func writeTempWAV(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fallback.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadFile_AcceptsCanonicalWAV(t *testing.T) {
	pcm := make([]byte, audioformat.FrameBytes*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	path := writeTempWAV(t, buildWAV(t, 48000, 2, 16, pcm))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())
	assert.Equal(t, "file", f.Mode())
}

func TestLoadFile_RejectsWrongSampleRate(t *testing.T) {
	path := writeTempWAV(t, buildWAV(t, 44100, 2, 16, make([]byte, 100)))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsMonoFile(t *testing.T) {
	path := writeTempWAV(t, buildWAV(t, 48000, 1, 16, make([]byte, 100)))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsNonPCMCodec(t *testing.T) {
	pcm := make([]byte, 100)
	wav := buildWAV(t, 48000, 2, 16, pcm)
	// Flip the fmt chunk's audio-format field (byte offset 20 in this
	// layout: 12-byte RIFF header + 8-byte "fmt " header) from PCM (1)
	// to a non-PCM codec tag.
	wav[20] = 3
	path := writeTempWAV(t, wav)
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_RejectsNotRIFF(t *testing.T) {
	path := writeTempWAV(t, []byte("not a wav file at all"))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestFile_ReadFrameLoopsAtEndOfPayload(t *testing.T) {
	pcm := make([]byte, audioformat.FrameBytes+100)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}
	path := writeTempWAV(t, buildWAV(t, 48000, 2, 16, pcm))
	f, err := LoadFile(path)
	require.NoError(t, err)

	first := f.ReadFrame()
	assert.Equal(t, pcm[:audioformat.FrameBytes], first)

	second := f.ReadFrame()
	assert.Len(t, second, audioformat.FrameBytes)
	// Second frame is the 100-byte tail followed by a wrap to the start.
	assert.Equal(t, pcm[audioformat.FrameBytes:], second[:100])
	assert.Equal(t, pcm[:audioformat.FrameBytes-100], second[100:])
}
