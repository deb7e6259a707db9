package entity

import "github.com/google/uuid"

// EnrollmentBatch is the ordered collection of recordings gathered toward one
// enrollment or verification submission, newest first. It is append-only
// except for explicit per-item removal, and is mutated only through the
// enrollment orchestrator.
type EnrollmentBatch struct {
	recordings []*Recording
}

// Prepend inserts a finished recording at the front of the batch.
func (b *EnrollmentBatch) Prepend(rec *Recording) {
	b.recordings = append([]*Recording{rec}, b.recordings...)
}

// Remove takes the recording with the given ID out of the batch and returns
// it, or nil when no such recording is present.
func (b *EnrollmentBatch) Remove(id uuid.UUID) *Recording {
	for i, rec := range b.recordings {
		if rec.ID == id {
			b.recordings = append(b.recordings[:i], b.recordings[i+1:]...)

			return rec
		}
	}

	return nil
}

// Recordings returns the batch members newest first. The slice is a copy; the
// batch cannot be mutated through it.
func (b *EnrollmentBatch) Recordings() []*Recording {
	out := make([]*Recording, len(b.recordings))
	copy(out, b.recordings)

	return out
}

// Size returns the number of recordings currently in the batch.
func (b *EnrollmentBatch) Size() int {
	return len(b.recordings)
}

// Drain empties the batch wholesale and returns the removed recordings so the
// caller can release their handles.
func (b *EnrollmentBatch) Drain() []*Recording {
	drained := b.recordings
	b.recordings = nil

	return drained
}
