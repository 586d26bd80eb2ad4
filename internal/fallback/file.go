package fallback

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// File is a Source that loops a WAV file's PCM payload in memory. Only
// canonical PCM WAV (s16le, 48kHz, stereo) is accepted, matching the
// pipeline's fixed audio format throughout — no resampling is performed.
type File struct {
	path string
	pcm  []byte
	pos  int
}

// LoadFile reads path, validates it as canonical s16le/48kHz/stereo WAV,
// and returns a File looping its PCM payload.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fallback: open %s: %w", path, err)
	}
	defer f.Close()

	pcm, err := readCanonicalWAV(f)
	if err != nil {
		return nil, fmt.Errorf("fallback: %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("fallback: %s: empty PCM payload", path)
	}

	return &File{path: path, pcm: pcm}, nil
}

// ReadFrame returns the next audioformat.FrameBytes-sized slice, looping
// back to the start so the file plays continuously: a short tail is
// followed directly by bytes from the start of the payload, with no
// padding in between.
func (fl *File) ReadFrame() []byte {
	frame := make([]byte, audioformat.FrameBytes)
	n := copy(frame, fl.pcm[fl.pos:])
	fl.pos += n
	for n < audioformat.FrameBytes {
		fl.pos = 0
		filled := copy(frame[n:], fl.pcm)
		n += filled
		fl.pos = filled
	}
	return frame
}

func (fl *File) Mode() string { return "file" }

// Path returns the loaded file's path, reported by GET /status.
func (fl *File) Path() string { return fl.path }

// readCanonicalWAV parses the minimal RIFF/WAVE structure needed to
// validate format and extract the data chunk: no support for extended
// fmt chunks, compressed codecs, or chunks after data.
func readCanonicalWAV(r io.Reader) ([]byte, error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var sawFmt bool
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("missing data chunk")
			}
			return nil, err
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if err := validateFmtChunk(body); err != nil {
				return nil, err
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			pcm := make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			return pcm, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("skip chunk %q: %w", id, err)
			}
		}
		if size%2 == 1 {
			// Chunks are word-aligned; skip the pad byte.
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return nil, err
			}
		}
	}
}

func validateFmtChunk(body []byte) error {
	if len(body) < 16 {
		return fmt.Errorf("fmt chunk too short")
	}
	audioFormat := binary.LittleEndian.Uint16(body[0:2])
	numChannels := binary.LittleEndian.Uint16(body[2:4])
	sampleRate := binary.LittleEndian.Uint32(body[4:8])
	bitsPerSample := binary.LittleEndian.Uint16(body[14:16])

	if audioFormat != 1 {
		return fmt.Errorf("unsupported WAV codec %d, only PCM is accepted", audioFormat)
	}
	if int(numChannels) != audioformat.Channels {
		return fmt.Errorf("expected %d channels, got %d", audioformat.Channels, numChannels)
	}
	if int(sampleRate) != audioformat.SampleRate {
		return fmt.Errorf("expected %d Hz, got %d", audioformat.SampleRate, sampleRate)
	}
	if int(bitsPerSample) != audioformat.BytesPerSample*8 {
		return fmt.Errorf("expected %d-bit samples, got %d", audioformat.BytesPerSample*8, bitsPerSample)
	}
	return nil
}
