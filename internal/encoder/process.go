package encoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
)

// process is one live encoder subprocess: raw PCM in via stdin, MP3 out
// via stdout. Spawned and torn down by Manager on every start/restart.
type process struct {
	cmd    *exec.Cmd
	stdin  *stdinWriter
	stdout io.ReadCloser
}

// startProcess launches ffmpeg reading raw s16le/48k/stereo PCM on stdin
// and writing an MP3 stream on stdout, mirroring the teacher's
// Encoder.Stream invocation but with the input side reversed: this repo
// feeds ffmpeg live PCM over a pipe instead of pointing it at a file.
func startProcess(ctx context.Context, bitrateKbps int) (*process, error) {
	args := []string{
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", audioformat.SampleRate),
		"-ac", fmt.Sprintf("%d", audioformat.Channels),
		"-i", "pipe:0",
		"-f", "mp3",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-vn",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("encoder: start ffmpeg: %w", err)
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				slog.Debug("encoder: ffmpeg stderr", "output", string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	return &process{
		cmd:    cmd,
		stdin:  newStdinWriter(stdin),
		stdout: stdout,
	}, nil
}

// kill terminates the subprocess and releases its pipes. Errors are
// logged, not returned: teardown during a restart must never itself be
// what fails the restart.
func (p *process) kill() {
	if err := p.stdin.Close(); err != nil {
		slog.Debug("encoder: closing stdin during teardown", "error", err)
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
}
