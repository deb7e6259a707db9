// Package service defines domain service interfaces implemented by the
// infrastructure layer.
package service

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

// ErrDeviceUnavailable is returned by a capture device when the platform
// denies access or no hardware is present.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// CaptureDevice acquires the platform microphone (or a substitute source).
// At most one stream is open per device at a time.
type CaptureDevice interface {
	// Open requests access to the device. It may suspend while the platform
	// prompts for permission and fails with ErrDeviceUnavailable when access
	// is denied.
	Open(ctx context.Context) (DeviceStream, error)
}

// DeviceStream delivers raw PCM frames from an open device. Closing the
// stream releases the device immediately.
type DeviceStream interface {
	io.ReadCloser

	// SampleRate returns the stream's sample rate in Hz.
	SampleRate() int

	// Channels returns the stream's channel count.
	Channels() int
}

// AudioEncoder turns raw PCM into a finite encoded buffer. Some backends need
// asynchronous one-time initialization; until Ready reports true, recording
// must be refused rather than silently falling back to a raw format.
type AudioEncoder interface {
	// Init performs the backend's one-time initialization.
	Init(ctx context.Context) error

	// Ready reports whether Init has completed.
	Ready() bool

	// NewSession starts encoding one recording with the given PCM layout.
	NewSession(sampleRate, channels int) (EncodeSession, error)
}

// EncodeSession accumulates PCM for a single recording.
type EncodeSession interface {
	// Write appends raw PCM bytes to the recording.
	Write(pcm []byte) (int, error)

	// Finalize closes the session and returns the finished buffer with its
	// MIME type. The session is unusable afterwards.
	Finalize() (data []byte, mimeType string, err error)
}

// Player streams a finished recording to an output sink. Play blocks until
// playback completes, fails, or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, audio io.Reader, mimeType string) error
}

// Ticker is an explicit scheduled-task handle owned by whoever started it.
// It must be stopped deterministically on every state-exit path.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts wall-clock time so the engine's one-second counters can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}
