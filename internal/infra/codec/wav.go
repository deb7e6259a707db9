// Package codec implements the pluggable audio encoding backend. The only
// backend is 16-bit PCM WAV, which every capture source here produces.
package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync/atomic"

	"voiceid/internal/domain/service"

	"github.com/pkg/errors"
)

// MIMEType is the tag attached to every finalized buffer.
const MIMEType = "audio/wav"

const (
	headerSize    = 44
	bitsPerSample = 16
)

// wavEncoder is a concrete implementation of the AudioEncoder interface.
// Finalizing prepends a RIFF header to the accumulated PCM.
type wavEncoder struct {
	ready atomic.Bool
}

// NewWAVEncoder is the constructor for wavEncoder. The encoder refuses
// sessions until Init has run, honoring the one-time initialization contract.
func NewWAVEncoder() service.AudioEncoder {
	return &wavEncoder{}
}

// Init performs the backend's one-time initialization.
func (e *wavEncoder) Init(_ context.Context) error {
	e.ready.Store(true)

	return nil
}

// Ready reports whether Init has completed.
func (e *wavEncoder) Ready() bool {
	return e.ready.Load()
}

// NewSession starts encoding one recording with the given PCM layout.
func (e *wavEncoder) NewSession(sampleRate, channels int) (service.EncodeSession, error) {
	if !e.ready.Load() {
		return nil, errors.New("encoder is not initialized")
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.Errorf("invalid PCM layout: %d Hz, %d channels", sampleRate, channels)
	}

	return &wavSession{sampleRate: sampleRate, channels: channels}, nil
}

// wavSession accumulates PCM for a single recording.
type wavSession struct {
	sampleRate int
	channels   int
	pcm        bytes.Buffer
	finalized  bool
}

// Write appends raw PCM bytes to the recording.
func (s *wavSession) Write(pcm []byte) (int, error) {
	if s.finalized {
		return 0, errors.New("encode session already finalized")
	}

	return s.pcm.Write(pcm)
}

// Finalize closes the session and returns the finished WAV buffer.
func (s *wavSession) Finalize() ([]byte, string, error) {
	if s.finalized {
		return nil, "", errors.New("encode session already finalized")
	}
	s.finalized = true

	pcm := s.pcm.Bytes()
	out := make([]byte, 0, headerSize+len(pcm))
	buf := bytes.NewBuffer(out)

	byteRate := s.sampleRate * s.channels * bitsPerSample / 8
	blockAlign := s.channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))              // PCM
	binary.Write(buf, binary.LittleEndian, uint16(s.channels))
	binary.Write(buf, binary.LittleEndian, uint32(s.sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), MIMEType, nil
}

// wavProber is a concrete implementation of the DurationProber interface. It
// computes the clip length from the RIFF fmt and data chunks.
type wavProber struct{}

// NewWAVProber is the constructor for wavProber.
func NewWAVProber() service.DurationProber {
	return &wavProber{}
}

// Probe returns the clip length in seconds from the decoded header.
func (p *wavProber) Probe(data []byte, _ string) (float64, error) {
	return Duration(data)
}

// Duration inspects a PCM WAV buffer's header to compute the clip length.
func Duration(data []byte) (float64, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, errors.Wrap(err, "short WAV header")
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, errors.New("not a WAV buffer")
	}

	var sampleRate uint32
	var bits uint16
	var channels uint16
	var dataSize uint32

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			return 0, errors.Wrap(err, "truncated chunk header")
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, buf); err != nil {
				return 0, errors.Wrap(err, "truncated fmt chunk")
			}
			if len(buf) < 16 {
				return 0, errors.New("invalid fmt chunk")
			}
			channels = binary.LittleEndian.Uint16(buf[2:4])
			sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			bits = binary.LittleEndian.Uint16(buf[14:16])
		case "data":
			dataSize = chunkSize
		default:
			skip := int64(chunkSize)
			if skip%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return 0, errors.Wrap(err, "failed to skip chunk")
			}
		}

		if chunkID == "data" {
			break
		}
	}

	if sampleRate == 0 || channels == 0 || bits == 0 {
		return 0, errors.New("missing audio format information")
	}

	bytesPerSample := (bits / 8) * channels
	if bytesPerSample == 0 {
		return 0, errors.New("invalid bytes per sample")
	}

	return float64(dataSize) / float64(bytesPerSample) / float64(sampleRate), nil
}
