// Package device provides capture-device and player implementations for
// environments without direct microphone access: a WAV-file source for
// scripted capture and a paced synthetic tone source for smoke tests.
package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"

	"voiceid/internal/domain/service"

	"github.com/pkg/errors"
)

// fileDevice is a concrete implementation of the CaptureDevice interface that
// replays a WAV file's PCM as if it were microphone input. A missing or
// unreadable file behaves exactly like a denied microphone.
type fileDevice struct {
	path       string
	sampleRate int
	channels   int
}

// NewFileDevice is the constructor for fileDevice. sampleRate and channels
// are fallbacks for raw (headerless) PCM files.
func NewFileDevice(path string, sampleRate, channels int) service.CaptureDevice {
	return &fileDevice{path: path, sampleRate: sampleRate, channels: channels}
}

// Open reads the source file and returns a stream over its PCM payload.
func (d *fileDevice) Open(_ context.Context) (service.DeviceStream, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, errors.Wrapf(service.ErrDeviceUnavailable, "cannot open %s: %v", d.path, err)
	}

	pcm, sampleRate, channels, err := splitWAV(data)
	if err != nil {
		// Not RIFF; treat the file as raw PCM in the configured layout.
		pcm, sampleRate, channels = data, d.sampleRate, d.channels
	}

	return &memoryStream{
		reader:     bytes.NewReader(pcm),
		sampleRate: sampleRate,
		channels:   channels,
		closed:     make(chan struct{}),
	}, nil
}

// memoryStream serves PCM from memory. After the buffer is exhausted the
// stream blocks until closed, mirroring a microphone that keeps the device
// open while producing no more frames.
type memoryStream struct {
	reader     *bytes.Reader
	sampleRate int
	channels   int
	closed     chan struct{}
}

func (s *memoryStream) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.EOF
	default:
	}

	n, err := s.reader.Read(p)
	if errors.Is(err, io.EOF) && n == 0 {
		// Buffer exhausted; hold the device open until released.
		<-s.closed

		return 0, io.EOF
	}

	return n, nil
}

func (s *memoryStream) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}

	return nil
}

func (s *memoryStream) SampleRate() int { return s.sampleRate }
func (s *memoryStream) Channels() int   { return s.channels }

// splitWAV separates a WAV buffer into its PCM payload and layout.
func splitWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, errors.New("not a WAV buffer")
	}

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, 0, 0, errors.New("truncated WAV chunk")
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, 0, errors.New("invalid fmt chunk")
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
		case "data":
			if sampleRate == 0 || channels == 0 {
				return nil, 0, 0, errors.New("data chunk before fmt chunk")
			}

			return data[body : body+chunkSize], sampleRate, channels, nil
		}

		if chunkSize%2 == 1 {
			chunkSize++
		}
		offset = body + chunkSize
	}

	return nil, 0, 0, errors.New("no data chunk")
}
