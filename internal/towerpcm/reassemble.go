package towerpcm

import (
	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// reassembler accumulates arbitrary-sized reads into a re-alignment
// buffer and extracts complete frames. Every Feed call drains as many
// whole frames as are available, so the leftover never grows past one
// frame short of audioformat.FrameBytes — there is no unbounded-growth
// case to guard against. Factored out of readLoop so it is unit-testable
// without a socket.
type reassembler struct {
	buf []byte
}

func newReassembler() *reassembler {
	return &reassembler{buf: make([]byte, 0, audioformat.FrameBytes*2)}
}

// Feed appends chunk and returns every complete frame now available, in
// order.
func (a *reassembler) Feed(chunk []byte) [][]byte {
	a.buf = append(a.buf, chunk...)

	var frames [][]byte
	for len(a.buf) >= audioformat.FrameBytes {
		frame := make([]byte, audioformat.FrameBytes)
		copy(frame, a.buf[:audioformat.FrameBytes])
		a.buf = a.buf[audioformat.FrameBytes:]
		frames = append(frames, frame)
	}

	return frames
}
