package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/scribe/internal/session"
	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
	asrmock "github.com/MrWong99/scribe/pkg/provider/asr/mock"
	"github.com/MrWong99/scribe/pkg/provider/vad"
	vadmock "github.com/MrWong99/scribe/pkg/provider/vad/mock"
)

// writeSilence writes a mono 16 kHz WAV of the given length below dir.
func writeSilence(t *testing.T, path string, d time.Duration) {
	t.Helper()
	pcm := audio.PCM{Samples: make([]float32, int(d.Seconds()*16000)), SampleRate: 16000}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, audio.WAVBytes(pcm), 0o644); err != nil {
		t.Fatal(err)
	}
}

type progressLog struct {
	mu    sync.Mutex
	steps []string
}

func (p *progressLog) record(pr session.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, pr.String())
}

func newTranscriber(t *testing.T, provider asr.Provider, opts ...session.TranscriberOption) (*session.Transcriber, session.Layout) {
	t.Helper()
	root := t.TempDir()
	layout := session.Layout{InputDir: filepath.Join(root, "input"), OutputDir: filepath.Join(root, "output")}
	loader := &audio.Loader{SampleRate: 16000, FFmpeg: &audio.FFmpeg{}}
	return session.NewTranscriber(loader, provider, layout, opts...), layout
}

func TestTranscribe_VADMode(t *testing.T) {
	t.Parallel()

	calls := 0
	provider := &asrmock.Provider{SegmentsFunc: func(req asr.Request) []cue.RawSegment {
		calls++
		if calls == 1 {
			return []cue.RawSegment{{Start: 0.1, End: 0.4, Text: " Roll  initiative. ", Confidence: 92}}
		}
		return []cue.RawSegment{
			{Start: 0, End: 0.2, Text: "uh", Confidence: 20},
			{Start: 0.2, End: 0.5, Text: "I attack!", Confidence: 75},
		}
	}}
	seg := &vadmock.Segmenter{Intervals: []vad.Interval{
		{Start: 500 * time.Millisecond, End: time.Second},
		{Start: 1200 * time.Millisecond, End: 1800 * time.Millisecond},
	}}
	vcfg := vad.Config{Threshold: 0.5, MinSpeech: 500 * time.Millisecond}
	tr, layout := newTranscriber(t, provider,
		session.WithSegmenter(seg, vcfg),
		session.WithRecognition("en", "Bramble, Oakhaven", 0),
		session.WithThreshold(50),
		session.WithProviderName("mock"),
	)

	audioPath := filepath.Join(layout.InputDir, "session-04", "3-nilbits_16khz.wav")
	writeSilence(t, audioPath, 2*time.Second)

	var progress progressLog
	res, err := tr.Transcribe(context.Background(), audioPath, progress.record)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	wantDir := filepath.Join(layout.OutputDir, "session-04", "3-nilbits_16khz")
	if res.Dir != wantDir {
		t.Errorf("Dir = %q, want %q", res.Dir, wantDir)
	}
	if res.Segments != 2 || res.Units != 3 || res.Cues != 2 {
		t.Errorf("counts = segments %d units %d cues %d, want 2 3 2", res.Segments, res.Units, res.Cues)
	}

	if provider.CallCount() != 2 {
		t.Fatalf("ASR calls = %d, want 2", provider.CallCount())
	}
	first := provider.Calls[0]
	if first.Language != "en" || first.Prompt != "Bramble, Oakhaven" || first.SampleRate != 16000 {
		t.Errorf("request = %+v", first)
	}
	if len(first.Samples) != 8000 {
		t.Errorf("first clip = %d samples, want 8000", len(first.Samples))
	}
	if len(seg.Calls) != 1 || seg.Calls[0].Cfg != vcfg {
		t.Errorf("segmenter calls = %+v", seg.Calls)
	}

	raw, err := session.LoadRaw(res.RawPath)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if raw.MappingFile != "3-nilbits_16khz_mapping.json" || raw.Provider != "mock" {
		t.Errorf("raw header = %+v", raw)
	}
	starts := make([]float64, len(raw.Segments))
	for i, s := range raw.Segments {
		starts[i] = s.Start
	}
	if want := []float64{0.6, 1.2, 1.4}; !approxEqual(starts, want) {
		t.Errorf("raw starts = %v, want %v", starts, want)
	}

	imap, err := session.LoadIntervals(res.MappingPath)
	if err != nil {
		t.Fatalf("LoadIntervals: %v", err)
	}
	if len(imap.Segments) != 2 || imap.Segments[1].Start != 1.2 {
		t.Errorf("interval map = %+v", imap)
	}

	cues, _, err := session.ReadVTT(res.VTTPath, "nilbits")
	if err != nil {
		t.Fatalf("ReadVTT: %v", err)
	}
	want := []cue.Cue{
		{Speaker: "nilbits", Start: 600 * time.Millisecond, End: 900 * time.Millisecond, Text: "Roll initiative."},
		{Speaker: "nilbits", Start: 1400 * time.Millisecond, End: 1700 * time.Millisecond, Text: "I attack!"},
	}
	if !slices.Equal(cues, want) {
		t.Errorf("cues = %+v, want %+v", cues, want)
	}

	wantSteps := []string{"converting", "segmenting", "transcribing 0/2", "transcribing 1/2", "transcribing 2/2", "done"}
	if !slices.Equal(progress.steps, wantSteps) {
		t.Errorf("progress = %v, want %v", progress.steps, wantSteps)
	}
}

func approxEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if d := a[i] - b[i]; d > 1e-9 || d < -1e-9 {
			return false
		}
	}
	return true
}

func TestTranscribe_FullMode(t *testing.T) {
	t.Parallel()
	provider := &asrmock.Provider{Segments: []cue.RawSegment{{Start: 0, End: 1, Text: "hi", Confidence: 10}}}
	tr, layout := newTranscriber(t, provider)

	audioPath := filepath.Join(layout.InputDir, "s1", "alice.wav")
	writeSilence(t, audioPath, time.Second)

	res, err := tr.Transcribe(context.Background(), audioPath, nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if provider.CallCount() != 1 || len(provider.Calls[0].Samples) != 16000 {
		t.Errorf("expected one call with the whole file, got %d calls", provider.CallCount())
	}
	// Threshold 0 keeps low-confidence units.
	if res.Cues != 1 {
		t.Errorf("Cues = %d, want 1", res.Cues)
	}
}

func TestTranscribe_ASRFailureWritesNothing(t *testing.T) {
	t.Parallel()
	provider := &asrmock.Provider{Err: errors.New("backend down")}
	tr, layout := newTranscriber(t, provider)

	audioPath := filepath.Join(layout.InputDir, "s1", "alice.wav")
	writeSilence(t, audioPath, time.Second)

	var progress progressLog
	_, err := tr.Transcribe(context.Background(), audioPath, progress.record)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(layout.ArtifactDir(audioPath)); !os.IsNotExist(statErr) {
		t.Errorf("artifact dir exists after failure: %v", statErr)
	}
	if last := progress.steps[len(progress.steps)-1]; last != "error" {
		t.Errorf("last progress = %q, want error", last)
	}
}

func TestTranscribe_EmptySegmentsSkipped(t *testing.T) {
	t.Parallel()
	provider := &asrmock.Provider{Err: asr.ErrEmptyAudio}
	seg := &vadmock.Segmenter{Intervals: []vad.Interval{{Start: 0, End: 500 * time.Millisecond}}}
	tr, layout := newTranscriber(t, provider, session.WithSegmenter(seg, vad.Config{}))

	audioPath := filepath.Join(layout.InputDir, "s1", "alice.wav")
	writeSilence(t, audioPath, time.Second)

	res, err := tr.Transcribe(context.Background(), audioPath, nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Units != 0 || res.Cues != 0 {
		t.Errorf("counts = %+v", res)
	}
	if _, err := os.Stat(res.VTTPath); err != nil {
		t.Errorf("track not written: %v", err)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	t.Parallel()
	tr, layout := newTranscriber(t, &asrmock.Provider{})
	if _, err := tr.Transcribe(context.Background(), filepath.Join(layout.InputDir, "nope.wav"), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestProgress_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		p    session.Progress
		want string
	}{
		{session.Progress{Stage: session.StageWaiting}, "waiting"},
		{session.Progress{Stage: session.StageTranscribing, Done: 3, Total: 12}, "transcribing 3/12"},
		{session.Progress{Stage: session.StageTranscribing}, "transcribing"},
		{session.Progress{Stage: session.StageDone}, "done"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
