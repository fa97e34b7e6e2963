// Package openai provides an ASR provider backed by the OpenAI audio
// transcription API (whisper-1).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
)

// DefaultModel is the default OpenAI transcription model. It is the only
// hosted model that returns per-segment log-probabilities.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the asr.Provider interface.
var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
	httpClient   *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client. Takes precedence over WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New constructs a new OpenAI ASR Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai asr: apiKey must not be empty")
	}
	m := oai.AudioModel(model)
	if model == "" {
		m = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: m}, nil
}

// Transcribe implements asr.Provider. The audio is uploaded as a 16-bit WAV
// file and the verbose_json response is parsed for segment timings and
// avg_logprob.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) ([]cue.RawSegment, error) {
	if len(req.Samples) == 0 {
		return nil, asr.ErrEmptyAudio
	}
	rate := req.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	wav := audio.WAVBytes(audio.PCM{Samples: req.Samples, SampleRate: rate})

	params := oai.AudioTranscriptionNewParams{
		File:                   oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model:                  p.model,
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
		Temperature:            oai.Float(req.Temperature),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai asr: transcribe: %w", err)
	}
	segs, _, err := asr.ParseVerbose([]byte(resp.RawJSON()))
	if err != nil {
		return nil, fmt.Errorf("openai asr: %w", err)
	}
	return segs, nil
}
