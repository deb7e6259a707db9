package usecase

import (
	"context"

	"voiceid/internal/domain/entity"

	"github.com/google/uuid"
)

// FlowMode selects which submission flow an orchestrator drives.
type FlowMode string

const (
	// ModeEnrollment collects a bounded sequence of recordings toward a
	// voice-enrollment submission.
	ModeEnrollment FlowMode = "enrollment"
	// ModeVerification keeps only the newest recording toward a single
	// verification submission.
	ModeVerification FlowMode = "verification"
)

// EnrollmentUsecase coordinates capture-engine output into a submission-ready
// batch and hands the audio payloads to the submission collaborator.
type EnrollmentUsecase interface {
	// Collect moves the engine's finished recording into the batch under an
	// auto-generated ordinal filename, newest first. In verification mode an
	// older recording is superseded and released, not queued.
	Collect() (*entity.Recording, error)

	// ImportFile admits an audio file into the batch as a Recording. Files
	// that are not a supported audio format are rejected before admission.
	ImportFile(path string) (*entity.Recording, error)

	// Remove takes one recording out of the batch and revokes its playable
	// handle immediately.
	Remove(id uuid.UUID) error

	// Recordings returns the batch members, newest first.
	Recordings() []*entity.Recording

	// IsReady reports whether the batch has reached the minimum recording
	// count for submission.
	IsReady() bool

	// Minimum returns the configured minimum recording count.
	Minimum() int

	// Submit packages every batch member's audio as a labeled payload set,
	// hands it to the submission collaborator and adopts the returned
	// credential. Below the minimum it is rejected with ErrBatchBelowMinimum
	// and on any failure the batch is left untouched for retry. A second
	// submission while one is in flight is rejected.
	Submit(ctx context.Context) (*entity.AuthSession, error)

	// Teardown revokes every outstanding playable handle in the batch.
	Teardown()
}
