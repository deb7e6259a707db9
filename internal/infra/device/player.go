package device

import (
	"context"
	"io"
	"time"

	"voiceid/internal/domain/service"
	"voiceid/internal/infra/codec"

	"github.com/pkg/errors"
)

// simulatedPlayer is a concrete implementation of the Player interface for
// speakerless environments: it consumes the buffer and holds for the clip's
// real decoded duration, so playback position counters behave as they would
// against an audio output.
type simulatedPlayer struct{}

// NewSimulatedPlayer is the constructor for simulatedPlayer.
func NewSimulatedPlayer() service.Player {
	return &simulatedPlayer{}
}

// Play blocks until the clip's duration elapses, playback is cancelled, or
// the stream turns out to be unreadable.
func (p *simulatedPlayer) Play(ctx context.Context, audio io.Reader, mimeType string) error {
	data, err := io.ReadAll(audio)
	if err != nil {
		return errors.Wrap(err, "failed to read playback stream")
	}

	seconds, err := codec.Duration(data)
	if err != nil {
		// Unknown container; approximate nothing and finish immediately.
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	}
}
