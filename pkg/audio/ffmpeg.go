package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrFFmpegMissing is returned when the ffmpeg binary cannot be found.
var ErrFFmpegMissing = errors.New("audio: ffmpeg not found")

// FFmpeg converts arbitrary containers to mono 16-bit PCM WAV by running an
// external ffmpeg binary.
type FFmpeg struct {
	// Path is the binary to run. Empty means "ffmpeg" on PATH.
	Path string
}

func (f *FFmpeg) binary() string {
	if f == nil || f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

// Available reports whether the ffmpeg binary can be resolved.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.binary()); err != nil {
		return fmt.Errorf("%w: %w", ErrFFmpegMissing, err)
	}
	return nil
}

// ToWAV converts src into a mono PCM WAV file at dst with the given sample
// rate, overwriting dst.
func (f *FFmpeg) ToWAV(ctx context.Context, src, dst string, rate int) error {
	if err := f.Available(); err != nil {
		return err
	}
	// ffmpeg -y -i input -ac 1 -ar <rate> -c:a pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, f.binary(),
		"-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-ac", "1", "-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("audio: ffmpeg convert %q: %w: %s", src, err, msg)
		}
		return fmt.Errorf("audio: ffmpeg convert %q: %w", src, err)
	}
	return nil
}
