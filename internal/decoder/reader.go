package decoder

import (
	"io"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// FrameReader reassembles a raw s16le byte stream into fixed-size PCM
// frames. It is the part of the decoder that is worth unit-testing without
// a real ffmpeg subprocess; FfmpegDecoder is a thin wrapper around one of
// these reading from a subprocess's stdout pipe.
//
// Open question resolved: on EOF with a non-empty partial frame buffered,
// the final frame is zero-padded rather than discarded, preserving the
// pacer's frame cadence at the cost of a few milliseconds of silence
// appended to the file's tail. See DESIGN.md.
type FrameReader struct {
	src io.Reader
	buf []byte
	eof bool
}

// NewFrameReader wraps src.
func NewFrameReader(src io.Reader) *FrameReader {
	return &FrameReader{src: src}
}

// ReadFrame returns the next frame, or io.EOF once the stream and any
// buffered partial frame are exhausted.
func (r *FrameReader) ReadFrame() ([]byte, error) {
	chunk := make([]byte, 8192)
	for len(r.buf) < audioformat.FrameBytes && !r.eof {
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
		if err != nil {
			r.eof = true
			if err != io.EOF {
				// Treat any read error as terminal, same as a clean EOF,
				// after salvaging whatever bytes were already read.
				break
			}
		}
	}

	if len(r.buf) >= audioformat.FrameBytes {
		frame := make([]byte, audioformat.FrameBytes)
		copy(frame, r.buf[:audioformat.FrameBytes])
		r.buf = r.buf[audioformat.FrameBytes:]
		return frame, nil
	}

	if r.eof && len(r.buf) > 0 {
		frame := make([]byte, audioformat.FrameBytes)
		copy(frame, r.buf)
		r.buf = nil
		return frame, nil
	}

	return nil, io.EOF
}
