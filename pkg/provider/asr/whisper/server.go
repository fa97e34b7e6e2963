// Package whisper provides whisper.cpp-backed ASR providers.
//
// [ServerProvider] talks to a running whisper-server binary (POST /inference)
// and requests the verbose_json response format so that every segment carries
// an average log-probability. [NativeProvider] runs inference in process
// through the whisper.cpp CGO bindings.
//
// Usage:
//
//	p, err := whisper.NewServer("http://localhost:8080",
//	    whisper.WithTimeout(5*time.Minute),
//	)
//	segs, err := p.Transcribe(ctx, asr.Request{Samples: pcm, SampleRate: 16000})
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/scribe/pkg/audio"
	"github.com/MrWong99/scribe/pkg/cue"
	"github.com/MrWong99/scribe/pkg/provider/asr"
)

const (
	defaultSampleRate = 16000
	defaultTimeout    = 10 * time.Minute
)

// Compile-time assertion that ServerProvider implements asr.Provider.
var _ asr.Provider = (*ServerProvider)(nil)

// Option is a functional option for configuring a ServerProvider.
type Option func(*ServerProvider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with; this is the default.
func WithModel(model string) Option {
	return func(p *ServerProvider) { p.model = model }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 minutes.
func WithTimeout(d time.Duration) Option {
	return func(p *ServerProvider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *ServerProvider) { p.httpClient = c }
}

// ServerProvider implements asr.Provider backed by a whisper.cpp HTTP server.
type ServerProvider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// NewServer creates a ServerProvider that connects to the whisper.cpp HTTP
// server at serverURL (e.g., "http://localhost:8080"). serverURL must be
// non-empty.
func NewServer(serverURL string, opts ...Option) (*ServerProvider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &ServerProvider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe encodes req as a WAV file and POSTs it to the /inference
// endpoint as multipart/form-data.
func (p *ServerProvider) Transcribe(ctx context.Context, req asr.Request) ([]cue.RawSegment, error) {
	if len(req.Samples) == 0 {
		return nil, asr.ErrEmptyAudio
	}
	rate := req.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	wav := audio.WAVBytes(audio.PCM{Samples: req.Samples, SampleRate: rate})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := [][2]string{
		{"response_format", "verbose_json"},
		{"temperature", strconv.FormatFloat(req.Temperature, 'f', -1, 64)},
	}
	if req.Language != "" {
		fields = append(fields, [2]string{"language", req.Language})
	}
	if req.Prompt != "" {
		fields = append(fields, [2]string{"prompt", req.Prompt})
	}
	if p.model != "" {
		fields = append(fields, [2]string{"model", p.model})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("whisper: write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	segs, _, err := asr.ParseVerbose(data)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return segs, nil
}

// Ping checks that the server answers HTTP at all. Used by readiness probes.
func (p *ServerProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/", nil)
	if err != nil {
		return fmt.Errorf("whisper: create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("whisper: ping: HTTP %d", resp.StatusCode)
	}
	return nil
}
