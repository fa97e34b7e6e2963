package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SupportedExtensions lists the recording extensions picked up by batch
// discovery, lower-case with leading dot.
var SupportedExtensions = []string{".wav", ".flac", ".mp3", ".m4a", ".ogg", ".aac", ".opus"}

// ConvertedMarker is part of the file name of every intermediate file
// produced by [Loader]; such files are never treated as inputs.
const ConvertedMarker = "_converted"

// IsSupported reports whether path looks like a recording that can be
// transcribed.
func IsSupported(path string) bool {
	if strings.Contains(filepath.Base(path), ConvertedMarker) {
		return false
	}
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// Loader decodes recordings into mono PCM at SampleRate.
type Loader struct {
	SampleRate int
	FFmpeg     *FFmpeg

	// TempDir receives intermediate ffmpeg output. Empty means next to the
	// source file.
	TempDir string
}

// Load decodes path. WAV and Ogg Opus are decoded in process; everything
// else, and Ogg streams that are not Opus, goes through ffmpeg. The result is
// resampled to l.SampleRate.
func (l *Loader) Load(ctx context.Context, path string) (PCM, error) {
	var (
		pcm PCM
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		pcm, err = decodeFile(path, DecodeWAV)
		if errors.Is(err, ErrUnsupportedWAV) {
			slog.Debug("audio: wav encoding not handled natively, using ffmpeg", "path", path, "err", err)
			pcm, err = l.viaFFmpeg(ctx, path)
		}
	case ".opus", ".ogg":
		pcm, err = decodeFile(path, DecodeOggOpus)
		if errors.Is(err, ErrNotOpus) {
			pcm, err = l.viaFFmpeg(ctx, path)
		}
	default:
		pcm, err = l.viaFFmpeg(ctx, path)
	}
	if err != nil {
		return PCM{}, err
	}
	return Resample(pcm, l.SampleRate)
}

func (l *Loader) viaFFmpeg(ctx context.Context, path string) (PCM, error) {
	dir := l.TempDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp := filepath.Join(dir, stem+ConvertedMarker+".wav")
	defer os.Remove(tmp)

	if err := l.FFmpeg.ToWAV(ctx, path, tmp, l.SampleRate); err != nil {
		return PCM{}, err
	}
	return decodeFile(tmp, DecodeWAV)
}

func decodeFile(path string, decode func(io.Reader) (PCM, error)) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()
	pcm, err := decode(f)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	return pcm, nil
}
