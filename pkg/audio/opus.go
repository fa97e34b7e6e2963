package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"
)

// Ogg Opus always decodes at 48 kHz; a packet holds at most 120 ms.
const (
	opusSampleRate   = 48000
	opusMaxFrameSize = opusSampleRate * 120 / 1000 // 5760
)

// ErrNotOpus is returned by [DecodeOggOpus] when the first logical stream
// is not Opus (e.g. Ogg Vorbis).
var ErrNotOpus = errors.New("audio: ogg stream is not opus")

// DecodeOggOpus demuxes the first logical stream of an Ogg container and
// decodes its Opus packets to mono 48 kHz PCM. Pre-skip samples declared in
// the OpusHead header are dropped.
func DecodeOggOpus(r io.Reader) (PCM, error) {
	packets := newOggReader(r)

	head, err := packets.next()
	if err != nil {
		return PCM{}, fmt.Errorf("audio: read opus head: %w", err)
	}
	if len(head) < 19 || !bytes.HasPrefix(head, []byte("OpusHead")) {
		return PCM{}, ErrNotOpus
	}
	channels := int(head[9])
	if channels < 1 || channels > 2 {
		return PCM{}, fmt.Errorf("audio: opus: unsupported channel count %d", channels)
	}
	preSkip := int(binary.LittleEndian.Uint16(head[10:12]))

	dec, err := gopus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return PCM{}, fmt.Errorf("audio: create opus decoder: %w", err)
	}

	var samples []float32
	for {
		pkt, err := packets.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("audio: read ogg packet: %w", err)
		}
		if bytes.HasPrefix(pkt, []byte("OpusTags")) || len(pkt) == 0 {
			continue
		}
		pcm, err := dec.Decode(pkt, opusMaxFrameSize, false)
		if err != nil {
			return PCM{}, fmt.Errorf("audio: opus decode: %w", err)
		}
		samples = append(samples, Downmix(Int16sToFloat32(pcm), channels)...)
	}

	if preSkip > len(samples) {
		preSkip = len(samples)
	}
	return PCM{Samples: samples[preSkip:], SampleRate: opusSampleRate}, nil
}

// oggReader reassembles packets of the first logical bitstream from Ogg
// pages. CRCs are not verified.
type oggReader struct {
	r       io.Reader
	serial  uint32
	started bool
	pending [][]byte
	partial []byte
}

func newOggReader(r io.Reader) *oggReader { return &oggReader{r: r} }

func (o *oggReader) next() ([]byte, error) {
	for len(o.pending) == 0 {
		if err := o.readPage(); err != nil {
			return nil, err
		}
	}
	pkt := o.pending[0]
	o.pending = o.pending[1:]
	return pkt, nil
}

func (o *oggReader) readPage() error {
	var hdr [27]byte
	if _, err := io.ReadFull(o.r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated ogg page header: %w", err)
		}
		return err
	}
	if string(hdr[0:4]) != "OggS" {
		return fmt.Errorf("bad ogg capture pattern %q", hdr[0:4])
	}
	serial := binary.LittleEndian.Uint32(hdr[14:18])
	nsegs := int(hdr[26])

	lacing := make([]byte, nsegs)
	if _, err := io.ReadFull(o.r, lacing); err != nil {
		return fmt.Errorf("read ogg segment table: %w", err)
	}
	size := 0
	for _, l := range lacing {
		size += int(l)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(o.r, body); err != nil {
		return fmt.Errorf("read ogg page body: %w", err)
	}

	if !o.started {
		o.serial = serial
		o.started = true
	}
	if serial != o.serial {
		return nil
	}

	off := 0
	for _, l := range lacing {
		o.partial = append(o.partial, body[off:off+int(l)]...)
		off += int(l)
		if l < 255 {
			o.pending = append(o.pending, o.partial)
			o.partial = nil
		}
	}
	return nil
}
