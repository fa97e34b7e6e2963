package openai_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/scribe/pkg/provider/asr"
	"github.com/MrWong99/scribe/pkg/provider/asr/openai"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := openai.New("", ""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestTranscribe_VerboseJSON(t *testing.T) {
	t.Parallel()
	var gotPath, gotFormat, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotFormat = r.FormValue("response_format")
			gotModel = r.FormValue("model")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"task": "transcribe", "language": "english", "duration": 2.0,
			"text": "Hello there.",
			"segments": [{"id": 0, "seek": 0, "start": 0.5, "end": 1.75, "text": " Hello there.",
			              "tokens": [1, 2], "temperature": 0, "avg_logprob": -0.25,
			              "compression_ratio": 1.0, "no_speech_prob": 0.01}]
		}`)
	}))
	defer srv.Close()

	p, err := openai.New("sk-test", "", openai.WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	segs, err := p.Transcribe(context.Background(), asr.Request{
		Samples:    make([]float32, 1600),
		SampleRate: 16000,
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/audio/transcriptions") {
		t.Errorf("path = %q", gotPath)
	}
	if gotFormat != "verbose_json" || gotModel != "whisper-1" {
		t.Errorf("response_format = %q, model = %q", gotFormat, gotModel)
	}
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1", len(segs))
	}
	if segs[0].Start != 0.5 || segs[0].End != 1.75 || segs[0].Confidence != 75 {
		t.Errorf("seg = %+v", segs[0])
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()
	p, _ := openai.New("sk-test", "")
	if _, err := p.Transcribe(context.Background(), asr.Request{}); err != asr.ErrEmptyAudio {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}
