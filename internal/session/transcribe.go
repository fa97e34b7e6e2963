package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/scribe/internal/observe"
	"github.com/MrWong99/scribe/internal/transcript"
	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
	"github.com/MrWong99/scribe/pkg/provider/vad"
)

// Stage is the step a file is in while being transcribed.
type Stage string

const (
	StageWaiting      Stage = "waiting"
	StageConverting   Stage = "converting"
	StageSegmenting   Stage = "segmenting"
	StageTranscribing Stage = "transcribing"
	StageDone         Stage = "done"
	StageError        Stage = "error"
)

// Progress reports the stage of one file. Done and Total count recognised
// segments while transcribing.
type Progress struct {
	Stage Stage
	Done  int
	Total int
}

func (p Progress) String() string {
	if p.Stage == StageTranscribing && p.Total > 0 {
		return fmt.Sprintf("%s %d/%d", p.Stage, p.Done, p.Total)
	}
	return string(p.Stage)
}

// FileResult describes the artifacts written for one recording.
type FileResult struct {
	AudioPath   string
	Dir         string
	RawPath     string
	MappingPath string
	VTTPath     string

	// Segments is the number of speech intervals sent to the recogniser.
	Segments int

	// Units is the number of raw ASR units persisted.
	Units int

	// Cues is the number of cues written to the track.
	Cues int

	Warnings []*cue.MalformedCueError
	Duration time.Duration
}

// TranscriberOption is a functional option for [NewTranscriber].
type TranscriberOption func(*Transcriber)

// WithSegmenter enables VAD mode: each interval found by seg is recognised
// separately. Without a segmenter the whole file is sent in one call.
func WithSegmenter(seg vad.Segmenter, cfg vad.Config) TranscriberOption {
	return func(t *Transcriber) {
		t.segmenter = seg
		t.vadCfg = cfg
	}
}

// WithRecognition sets the language, prompt and temperature of every request.
func WithRecognition(language, prompt string, temperature float64) TranscriberOption {
	return func(t *Transcriber) {
		t.language = language
		t.prompt = prompt
		t.temperature = temperature
	}
}

// WithThreshold sets the confidence threshold used when writing the track.
func WithThreshold(threshold float64) TranscriberOption {
	return func(t *Transcriber) { t.threshold = threshold }
}

// WithProviderName labels metrics and the persisted raw result.
func WithProviderName(name string) TranscriberOption {
	return func(t *Transcriber) { t.providerName = name }
}

// WithMetrics overrides the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) TranscriberOption {
	return func(t *Transcriber) { t.metrics = m }
}

// Transcriber turns one recording into persisted artifacts:
// decode, segment, recognise every segment with its offset applied, persist
// the raw result and interval map, then write the filtered cue track.
//
// A Transcriber holds no per-file state and is safe for concurrent use.
type Transcriber struct {
	loader   *audio.Loader
	provider asr.Provider
	layout   Layout

	segmenter    vad.Segmenter
	vadCfg       vad.Config
	language     string
	prompt       string
	temperature  float64
	threshold    float64
	providerName string
	metrics      *observe.Metrics
}

// NewTranscriber creates a [Transcriber] writing below layout.OutputDir.
func NewTranscriber(loader *audio.Loader, provider asr.Provider, layout Layout, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		loader:       loader,
		provider:     provider,
		layout:       layout,
		providerName: "asr",
	}
	for _, o := range opts {
		o(t)
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}
	return t
}

// Transcribe processes audioPath. progress, if non-nil, is called on every
// stage change and after each recognised segment. No artifact is written
// unless recognition of every segment succeeded.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, progress func(Progress)) (res *FileResult, err error) {
	ctx, span := observe.StartSpan(ctx, "session.transcribe", trace.WithAttributes(attribute.String("audio", audioPath)))
	defer func() { observe.EndSpan(span, err) }()

	t.metrics.ActiveJobs.Add(ctx, 1)
	defer t.metrics.ActiveJobs.Add(ctx, -1)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			report(progress, Progress{Stage: StageError})
		}
		t.metrics.RecordFile(ctx, status)
	}()

	started := time.Now()
	stem := Stem(audioPath)
	dir := t.layout.ArtifactDir(audioPath)
	log := observe.Logger(ctx).With("audio", audioPath)

	report(progress, Progress{Stage: StageConverting})
	pcm, err := t.loader.Load(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("session: transcribe %q: %w", audioPath, err)
	}

	report(progress, Progress{Stage: StageSegmenting})
	intervals, err := t.segment(ctx, pcm)
	if err != nil {
		return nil, fmt.Errorf("session: transcribe %q: %w", audioPath, err)
	}
	log.Debug("segmented recording", "duration", pcm.Duration(), "segments", len(intervals))

	var segments []cue.RawSegment
	for i, iv := range intervals {
		report(progress, Progress{Stage: StageTranscribing, Done: i, Total: len(intervals)})
		clip := pcm.Slice(iv.Start, iv.End)
		callStart := time.Now()
		segs, err := t.provider.Transcribe(ctx, asr.Request{
			Samples:     clip.Samples,
			SampleRate:  clip.SampleRate,
			Language:    t.language,
			Prompt:      t.prompt,
			Temperature: t.temperature,
		})
		t.metrics.RecordASR(ctx, t.providerName, time.Since(callStart), err)
		if errors.Is(err, asr.ErrEmptyAudio) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("session: transcribe %q: segment %d: %w", audioPath, i, err)
		}
		asr.Shift(segs, cue.Seconds(iv.Start))
		segments = append(segments, segs...)
	}
	report(progress, Progress{Stage: StageTranscribing, Done: len(intervals), Total: len(intervals)})

	res = &FileResult{
		AudioPath:   audioPath,
		Dir:         dir,
		RawPath:     RawPath(dir, stem),
		MappingPath: MappingPath(dir, stem),
		VTTPath:     VTTPath(dir, stem),
		Segments:    len(intervals),
		Units:       len(segments),
	}

	imap := NewIntervalMap(audioPath, pcm.SampleRate, cue.Seconds(pcm.Duration()), intervals)
	if err := SaveIntervals(res.MappingPath, imap); err != nil {
		return nil, err
	}
	raw := &cue.RawResult{
		AudioPath:   audioPath,
		Segments:    segments,
		MappingFile: stem + MappingSuffix,
		Provider:    t.providerName,
		Language:    t.language,
	}
	if err := SaveRaw(res.RawPath, raw); err != nil {
		return nil, err
	}

	gen := generate(ctx, t.metrics, raw, stem, t.threshold)
	if err := WriteVTT(res.VTTPath, gen.Cues); err != nil {
		return nil, err
	}
	res.Cues = len(gen.Cues)
	res.Warnings = gen.Warnings
	res.Duration = time.Since(started)

	report(progress, Progress{Stage: StageDone})
	log.Info("transcribed recording",
		"segments", res.Segments,
		"units", res.Units,
		"cues", res.Cues,
		"elapsed", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func (t *Transcriber) segment(ctx context.Context, pcm audio.PCM) ([]vad.Interval, error) {
	total := pcm.Duration()
	if t.segmenter == nil {
		if total <= 0 {
			return nil, nil
		}
		return []vad.Interval{{Start: 0, End: total}}, nil
	}
	start := time.Now()
	intervals, err := t.segmenter.Segment(ctx, pcm, t.vadCfg)
	t.metrics.VADDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

// generate runs the confidence filter and records what it dropped.
func generate(ctx context.Context, m *observe.Metrics, raw *cue.RawResult, username string, threshold float64) transcript.GenerateResult {
	gen := transcript.Generate(raw, username, threshold)
	m.RecordDropped(ctx, observe.StageConfidence, gen.BelowThreshold)
	m.RecordDropped(ctx, observe.StageEmpty, gen.Empty)
	m.RecordDropped(ctx, observe.StageMalformed, len(gen.Warnings))
	for _, w := range gen.Warnings {
		observe.Logger(ctx).Warn("skipping malformed raw unit", "err", w)
	}
	return gen
}

func report(progress func(Progress), p Progress) {
	if progress != nil {
		progress(p)
	}
}
