package device

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"

	"voiceid/internal/domain/service"
)

const synthFrequencyHz = 440.0

// synthDevice is a concrete implementation of the CaptureDevice interface
// that generates a paced sine tone, so recording durations track wall-clock
// time the way a real microphone would.
type synthDevice struct {
	sampleRate int
	channels   int
}

// NewSynthDevice is the constructor for synthDevice.
func NewSynthDevice(sampleRate, channels int) service.CaptureDevice {
	return &synthDevice{sampleRate: sampleRate, channels: channels}
}

// Open starts the tone generator.
func (d *synthDevice) Open(_ context.Context) (service.DeviceStream, error) {
	return &synthStream{
		sampleRate: d.sampleRate,
		channels:   d.channels,
		started:    time.Now(),
		closed:     make(chan struct{}),
	}, nil
}

// synthStream produces PCM16 sine samples at the pace the layout implies:
// each Read delivers only the samples that wall-clock time has "captured"
// since the previous Read.
type synthStream struct {
	sampleRate int
	channels   int
	started    time.Time
	generated  int // samples per channel already delivered
	phase      float64
	closed     chan struct{}
}

func (s *synthStream) Read(p []byte) (int, error) {
	frameBytes := 2 * s.channels

	for {
		select {
		case <-s.closed:
			return 0, io.EOF
		default:
		}

		due := int(time.Since(s.started).Seconds() * float64(s.sampleRate))
		pending := due - s.generated
		if pending > 0 {
			if max := len(p) / frameBytes; pending > max {
				pending = max
			}
			if pending == 0 {
				return 0, nil
			}
			for i := 0; i < pending; i++ {
				sample := int16(math.Sin(s.phase) * math.MaxInt16 / 4)
				s.phase += 2 * math.Pi * synthFrequencyHz / float64(s.sampleRate)
				for ch := 0; ch < s.channels; ch++ {
					binary.LittleEndian.PutUint16(p[(i*s.channels+ch)*2:], uint16(sample))
				}
			}
			s.generated += pending

			return pending * frameBytes, nil
		}

		// Nothing due yet; wait for more wall-clock time or release.
		select {
		case <-s.closed:
			return 0, io.EOF
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (s *synthStream) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}

	return nil
}

func (s *synthStream) SampleRate() int { return s.sampleRate }
func (s *synthStream) Channels() int   { return s.channels }
