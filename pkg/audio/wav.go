package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
	wavExtensible  = 0xFFFE
)

// ErrUnsupportedWAV is returned for WAV encodings other than 16-bit integer
// and 32-bit float PCM.
var ErrUnsupportedWAV = errors.New("audio: unsupported wav encoding")

// DecodeWAV reads a RIFF/WAV stream and returns it downmixed to mono.
// Unknown chunks are skipped.
func DecodeWAV(r io.Reader) (PCM, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return PCM{}, fmt.Errorf("audio: read wav header: %w", err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("audio: not a RIFF/WAVE stream")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
		haveFmt    bool
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return PCM{}, fmt.Errorf("audio: wav has no data chunk")
			}
			return PCM{}, fmt.Errorf("audio: read wav chunk: %w", err)
		}
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return PCM{}, fmt.Errorf("audio: read wav fmt: %w", err)
			}
			if len(buf) < 16 {
				return PCM{}, fmt.Errorf("audio: wav fmt chunk too short (%d bytes)", len(buf))
			}
			format = binary.LittleEndian.Uint16(buf[0:2])
			channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			bits = int(binary.LittleEndian.Uint16(buf[14:16]))
			if format == wavExtensible && len(buf) >= 26 {
				format = binary.LittleEndian.Uint16(buf[24:26])
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return PCM{}, fmt.Errorf("audio: wav data chunk before fmt chunk")
			}
			data, err := io.ReadAll(io.LimitReader(r, size))
			if err != nil {
				return PCM{}, fmt.Errorf("audio: read wav data: %w", err)
			}
			samples, err := wavSamples(data, format, bits)
			if err != nil {
				return PCM{}, err
			}
			if channels < 1 {
				channels = 1
			}
			return PCM{Samples: Downmix(samples, channels), SampleRate: sampleRate}, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return PCM{}, fmt.Errorf("audio: skip wav chunk %q: %w", id, err)
			}
		}
	}
}

func wavSamples(data []byte, format uint16, bits int) ([]float32, error) {
	switch {
	case format == wavFormatPCM && bits == 16:
		return Int16ToFloat32(data), nil
	case format == wavFormatFloat && bits == 32:
		n := len(data) / 4
		out := make([]float32, n)
		for i := range n {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedWAV, format, bits)
}

// EncodeWAV writes p as a 16-bit mono RIFF/WAV stream.
func EncodeWAV(w io.Writer, p PCM) error {
	_, err := w.Write(WAVBytes(p))
	return err
}

// WAVBytes wraps p in a 16-bit mono RIFF/WAV container, suitable for direct
// inclusion in a multipart form upload.
func WAVBytes(p PCM) []byte {
	const bps = 16
	pcm := Float32ToInt16(p.Samples)
	byteRate := p.SampleRate * bps / 8
	dataSize := len(pcm)

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(p.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(bps/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bps))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)
	return buf.Bytes()
}
