// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"voiceid/internal/domain/entity"
)

// CaptureUsecase provides a single in-flight recording or playback session
// and reports it honestly. All methods are safe for concurrent use; two
// overlapping operations are never interleaved into an undefined state, the
// second is rejected instead.
type CaptureUsecase interface {
	// Start acquires the capture device and begins encoding. It fails with
	// ErrEncoderNotReady before the encoder finished initializing and with
	// ErrDeviceAccess when the platform denies the microphone, in which case
	// the engine returns to idle.
	Start(ctx context.Context) error

	// Stop finalizes the in-flight buffer into one Recording and releases
	// the device. While not recording (and not playing) it is a no-op
	// returning (nil, nil).
	Stop() (*entity.Recording, error)

	// Play streams the finished recording to the player. Playback ends on
	// its own, via Pause, or on teardown.
	Play(ctx context.Context) error

	// Pause halts an in-flight playback. Not playing is a no-op.
	Pause() error

	// Discard releases the finished recording and returns the engine to
	// idle. Without a finished recording it is a no-op.
	Discard() error

	// Take transfers ownership of the finished recording to the caller
	// without revoking its handle and returns the engine to idle. It returns
	// nil when no finished recording exists.
	Take() *entity.Recording

	// State returns the engine's current machine state.
	State() entity.CaptureState

	// ElapsedSeconds returns the wall-clock seconds counted for the
	// in-flight or just-finished recording.
	ElapsedSeconds() int

	// PlaybackSeconds returns the position counter of the in-flight playback.
	PlaybackSeconds() int

	// Teardown stops all counters and releases the device and any handle
	// unconditionally. The engine ends idle.
	Teardown()
}
