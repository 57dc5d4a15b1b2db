package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// FrameExtractor grabs a still image from a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video, out string) error
}

// FFmpeg extracts frames by running the ffmpeg binary.
type FFmpeg struct {
	Bin string
}

func (f FFmpeg) bin() string {
	if f.Bin != "" {
		return f.Bin
	}
	return "ffmpeg"
}

// ExtractFrame writes the first frame of video to out at the best JPEG
// quality, replacing out if it exists.
func (f FFmpeg) ExtractFrame(ctx context.Context, video, out string) error {
	bin, err := exec.LookPath(f.bin())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrToolMissing, err)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-i", video,
		"-vframes", "1",
		"-q:v", "1",
		out,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with %d: %s", exitErr.ExitCode(), lastLine(string(output)))
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
