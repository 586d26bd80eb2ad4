package decoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// FfmpegDecoder spawns an ffmpeg subprocess to decode an arbitrary input
// file to raw s16le PCM, the out-of-process decoder spec.md treats as an
// external collaborator. Its subprocess/pipe plumbing mirrors the teacher's
// ffmpeg.Encoder.Stream: context-scoped command, piped stdout for data,
// piped stderr logged at debug level in a background goroutine.
type FfmpegDecoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	frames *FrameReader
}

// Open starts ffmpeg decoding path to raw PCM. The returned Decoder must be
// closed by the caller once exhausted or abandoned.
func Open(ctx context.Context, path string) (*FfmpegDecoder, error) {
	args := []string{
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(audioformat.SampleRate),
		"-ac", strconv.Itoa(audioformat.Channels),
		"-vn",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder: failed to create stdout pipe for %q: %w", path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder: failed to create stderr pipe for %q: %w", path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("decoder: failed to start ffmpeg for %q: %w", path, err)
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				slog.Debug("decoder: ffmpeg stderr", "path", path, "output", string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	return &FfmpegDecoder{
		cmd:    cmd,
		stdout: stdout,
		frames: NewFrameReader(stdout),
	}, nil
}

// ReadFrame delegates to the underlying FrameReader.
func (d *FfmpegDecoder) ReadFrame() ([]byte, error) {
	return d.frames.ReadFrame()
}

// Close drains the subprocess, closing stdout first so ffmpeg observes a
// broken pipe if it is still writing, then waits for it to exit.
func (d *FfmpegDecoder) Close() error {
	if d.stdout != nil {
		d.stdout.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		if err := d.cmd.Wait(); err != nil {
			slog.Debug("decoder: ffmpeg exited with error", "error", err)
		}
	}
	return nil
}
