package audio_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/MrWong99/scribe/pkg/audio"
)

func TestWAV_RoundTrip(t *testing.T) {
	t.Parallel()
	in := audio.PCM{Samples: sine(16000, 250*time.Millisecond, 0.25), SampleRate: 16000}

	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, in); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if buf.Len() != 44+len(in.Samples)*2 {
		t.Errorf("wav size = %d", buf.Len())
	}

	out, err := audio.DecodeWAV(&buf)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 16000 || len(out.Samples) != len(in.Samples) {
		t.Fatalf("decoded %s, want %s", out, in)
	}
	for i := range in.Samples {
		if d := math.Abs(float64(out.Samples[i] - in.Samples[i])); d > 1.0/16384 {
			t.Fatalf("sample %d: got %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

// buildWAV assembles a WAV with an extra LIST chunk before the data.
func buildWAV(format, channels, bits uint16, rate uint32, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(0))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, format)
	binary.Write(&b, binary.LittleEndian, channels)
	binary.Write(&b, binary.LittleEndian, rate)
	binary.Write(&b, binary.LittleEndian, rate*uint32(channels)*uint32(bits)/8)
	binary.Write(&b, binary.LittleEndian, channels*bits/8)
	binary.Write(&b, binary.LittleEndian, bits)
	b.WriteString("LIST")
	binary.Write(&b, binary.LittleEndian, uint32(3))
	b.Write([]byte{'a', 'b', 'c', 0})
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestDecodeWAV_StereoSkipsUnknownChunks(t *testing.T) {
	t.Parallel()
	data := samplesToBytes([]int16{16384, 0, -16384, -16384})
	out, err := audio.DecodeWAV(bytes.NewReader(buildWAV(1, 2, 16, 44100, data)))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 44100 || len(out.Samples) != 2 {
		t.Fatalf("got %d samples at %d Hz", len(out.Samples), out.SampleRate)
	}
	if out.Samples[0] != 0.25 || out.Samples[1] != -0.5 {
		t.Errorf("samples = %v, want [0.25 -0.5]", out.Samples)
	}
}

func TestDecodeWAV_Float32(t *testing.T) {
	t.Parallel()
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.75))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-0.25))
	out, err := audio.DecodeWAV(bytes.NewReader(buildWAV(3, 1, 32, 16000, data)))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(out.Samples) != 2 || out.Samples[0] != 0.75 || out.Samples[1] != -0.25 {
		t.Errorf("samples = %v", out.Samples)
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	t.Parallel()
	if _, err := audio.DecodeWAV(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Error("expected error for non-RIFF input")
	}
	_, err := audio.DecodeWAV(bytes.NewReader(buildWAV(1, 1, 24, 16000, make([]byte, 6))))
	if !errors.Is(err, audio.ErrUnsupportedWAV) {
		t.Errorf("24-bit err = %v, want ErrUnsupportedWAV", err)
	}
}
