// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrHandleRevoked is returned when a playable handle is used or released
// after it has already been revoked.
var ErrHandleRevoked = errors.New("playable handle has been revoked")

// Recording is one completed audio capture. The encoded buffer is fixed at
// creation and never mutated afterwards; only the duration (backfilled once
// from the decoded audio) and the caller-assigned filename may change.
type Recording struct {
	ID        uuid.UUID // Process-unique identifier, assigned at creation, never reused.
	Filename  string    // Display label assigned by the caller; uniqueness is caller convention.
	MIMEType  string    // MIME tag of the encoded buffer, e.g. "audio/wav".
	SizeBytes int       // Byte length of the encoded buffer, fixed at creation.

	audio    []byte
	duration float64
	decoded  bool
	handle   *PlayableHandle
}

// NewRecording finalizes an encoded buffer into a Recording and creates its
// playable handle. The caller hands over ownership of audio; it must not be
// mutated afterwards.
func NewRecording(filename, mimeType string, audio []byte) *Recording {
	rec := &Recording{
		ID:        uuid.New(),
		Filename:  filename,
		MIMEType:  mimeType,
		SizeBytes: len(audio),
		audio:     audio,
	}
	rec.handle = &PlayableHandle{recordingID: rec.ID, data: audio}

	return rec
}

// Audio returns the encoded buffer for submission. The slice is shared, not
// copied; callers must treat it as read-only.
func (r *Recording) Audio() []byte {
	return r.audio
}

// DurationSeconds returns the current best-known duration, or 0 when the
// duration has not been learned yet.
func (r *Recording) DurationSeconds() float64 {
	return r.duration
}

// SetProvisionalDuration records the wall-clock duration counted while
// recording. It never overrides a decoded duration.
func (r *Recording) SetProvisionalDuration(seconds float64) {
	if r.decoded {
		return
	}
	r.duration = seconds
}

// BackfillDecodedDuration refines the duration once from the decoded audio.
// Subsequent calls are ignored so the value can never regress.
func (r *Recording) BackfillDecodedDuration(seconds float64) {
	if r.decoded || seconds <= 0 {
		return
	}
	r.duration = seconds
	r.decoded = true
}

// Handle returns the recording's playable handle.
func (r *Recording) Handle() *PlayableHandle {
	return r.handle
}

// Release revokes the playable handle and drops the audio buffer so the
// memory can be reclaimed. A released recording cannot be played or submitted.
func (r *Recording) Release() error {
	r.audio = nil

	return r.handle.Revoke()
}

// PlayableHandle is an ephemeral, revocable reference that lets playback code
// stream a recording's buffer without copying it. Each handle is released
// exactly once; ownership is transferred to whoever releases it, never shared.
type PlayableHandle struct {
	recordingID uuid.UUID

	mu      sync.Mutex
	data    []byte
	revoked bool
}

// Open returns a reader over the underlying buffer, or ErrHandleRevoked when
// the handle has already been released.
func (h *PlayableHandle) Open() (io.Reader, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return nil, errors.Wrapf(ErrHandleRevoked, "recording %s", h.recordingID)
	}

	return bytes.NewReader(h.data), nil
}

// Revoke invalidates the handle. Revoking twice is a programming error and is
// reported as ErrHandleRevoked rather than silently tolerated.
func (h *PlayableHandle) Revoke() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return errors.Wrapf(ErrHandleRevoked, "double release of recording %s", h.recordingID)
	}
	h.revoked = true
	h.data = nil

	return nil
}

// Revoked reports whether the handle has been released.
func (h *PlayableHandle) Revoked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.revoked
}
