package impl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"
	"voiceid/internal/usecase"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultEnrollmentMinimum matches the server's enrollment-file requirement.
const DefaultEnrollmentMinimum = 3

// enrollmentOrchestrator implements the EnrollmentUsecase interface. It is
// the only mutator of its batch; every recording that enters the batch leaves
// it through a handle-revoking path.
type enrollmentOrchestrator struct {
	capture  usecase.CaptureUsecase
	sessions usecase.SessionUsecase
	api      service.AuthAPI
	prober   service.DurationProber
	logger   *slog.Logger
	mode     usecase.FlowMode
	minimum  int

	mu         sync.Mutex
	batch      entity.EnrollmentBatch
	ordinal    int
	submitting bool
}

// NewEnrollmentOrchestrator is the constructor for enrollmentOrchestrator.
// Verification mode always uses a minimum of one; a non-positive enrollment
// minimum falls back to the default.
func NewEnrollmentOrchestrator(
	capture usecase.CaptureUsecase,
	sessions usecase.SessionUsecase,
	api service.AuthAPI,
	prober service.DurationProber,
	mode usecase.FlowMode,
	minimum int,
	logger *slog.Logger,
) usecase.EnrollmentUsecase {
	if mode == usecase.ModeVerification {
		minimum = 1
	} else if minimum <= 0 {
		minimum = DefaultEnrollmentMinimum
	}

	return &enrollmentOrchestrator{
		capture:  capture,
		sessions: sessions,
		api:      api,
		prober:   prober,
		logger:   logger,
		mode:     mode,
		minimum:  minimum,
	}
}

// Collect moves the engine's finished recording into the batch.
func (o *enrollmentOrchestrator) Collect() (*entity.Recording, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.submitting {
		return nil, errors.Wrap(domainerrors.ErrSubmissionInFlight, "batch is frozen during submission")
	}

	rec := o.capture.Take()
	if rec == nil {
		return nil, errors.Wrap(domainerrors.ErrNoRecording, "nothing to collect")
	}

	o.ordinal++
	rec.Filename = fmt.Sprintf("sample-%02d%s", o.ordinal, extensionFor(rec.MIMEType))
	o.admitLocked(rec)
	o.logger.Debug("Recording collected",
		slog.String("filename", rec.Filename),
		slog.Int("batch_size", o.batch.Size()))

	return rec, nil
}

// ImportFile admits an audio file into the batch as a Recording. Non-audio
// formats are rejected by extension and content sniff before admission.
func (o *enrollmentOrchestrator) ImportFile(path string) (*entity.Recording, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.submitting {
		return nil, errors.Wrap(domainerrors.ErrSubmissionInFlight, "batch is frozen during submission")
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".wav" {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedAudioFormat, "extension %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio file")
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "audio/") {
		return nil, errors.Wrapf(domainerrors.ErrUnsupportedAudioFormat, "detected %q", detected.String())
	}

	rec := entity.NewRecording(filepath.Base(path), detected.String(), data)
	if o.prober != nil {
		if seconds, perr := o.prober.Probe(data, detected.String()); perr == nil {
			rec.BackfillDecodedDuration(seconds)
		}
	}
	o.admitLocked(rec)
	o.logger.Info("Audio file imported",
		slog.String("filename", rec.Filename),
		slog.Int("size_bytes", rec.SizeBytes))

	return rec, nil
}

// Remove takes one recording out of the batch and revokes its handle.
func (o *enrollmentOrchestrator) Remove(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.submitting {
		return errors.Wrap(domainerrors.ErrSubmissionInFlight, "batch is frozen during submission")
	}

	rec := o.batch.Remove(id)
	if rec == nil {
		return errors.Wrapf(domainerrors.ErrValidationFailed, "recording %s is not in the batch", id)
	}
	if err := rec.Release(); err != nil {
		return errors.Wrap(err, "failed to release removed recording")
	}

	return nil
}

// Recordings returns the batch members, newest first.
func (o *enrollmentOrchestrator) Recordings() []*entity.Recording {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.batch.Recordings()
}

// IsReady reports whether the batch has reached the submission minimum.
func (o *enrollmentOrchestrator) IsReady() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.batch.Size() >= o.minimum
}

// Minimum returns the configured minimum recording count.
func (o *enrollmentOrchestrator) Minimum() int {
	return o.minimum
}

// Submit hands the batch to the submission collaborator and adopts the
// credential it returns. On any server failure the batch is left untouched so
// the user can retry without re-recording.
func (o *enrollmentOrchestrator) Submit(ctx context.Context) (*entity.AuthSession, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()

		return nil, errors.Wrap(domainerrors.ErrSubmissionInFlight, "submit rejected")
	}
	if o.batch.Size() < o.minimum {
		size := o.batch.Size()
		o.mu.Unlock()

		return nil, errors.Wrapf(domainerrors.ErrBatchBelowMinimum, "have %d, need %d", size, o.minimum)
	}

	members := o.batch.Recordings()
	clips := make([]entity.AudioClip, 0, len(members))
	// Payloads go out in the order they were recorded.
	for i := len(members) - 1; i >= 0; i-- {
		clips = append(clips, entity.AudioClip{
			Filename: members[i].Filename,
			MIMEType: members[i].MIMEType,
			Data:     members[i].Audio(),
		})
	}
	token := o.sessions.Current().RawToken
	o.submitting = true
	o.mu.Unlock()

	var cred *entity.IssuedCredential
	var err error
	if o.mode == usecase.ModeVerification {
		cred, err = o.api.VerifyVoice(ctx, token, clips[len(clips)-1])
	} else {
		cred, err = o.api.EnrollVoice(ctx, token, clips)
	}

	o.mu.Lock()
	o.submitting = false
	if err != nil {
		o.mu.Unlock()
		o.logger.Warn("Submission rejected", slog.Any("error", err), slog.String("mode", string(o.mode)))

		return nil, errors.Wrap(err, "submission failed")
	}
	o.releaseAllLocked()
	o.mu.Unlock()

	session, err := o.sessions.Adopt(ctx, cred.Token, cred.Phrase)
	if err != nil {
		return nil, errors.Wrap(err, "failed to adopt credential after submission")
	}
	o.logger.Info("Submission accepted",
		slog.String("mode", string(o.mode)),
		slog.String("status", string(session.Status())))

	return session, nil
}

// Teardown revokes every outstanding playable handle in the batch.
func (o *enrollmentOrchestrator) Teardown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.releaseAllLocked()
}

// admitLocked inserts a recording newest first. In verification mode an older
// recording is superseded and released, never queued.
func (o *enrollmentOrchestrator) admitLocked(rec *entity.Recording) {
	if o.mode == usecase.ModeVerification {
		o.releaseAllLocked()
	}
	o.batch.Prepend(rec)
}

func (o *enrollmentOrchestrator) releaseAllLocked() {
	for _, rec := range o.batch.Drain() {
		if err := rec.Release(); err != nil {
			o.logger.Warn("Failed to release recording handle",
				slog.String("recording_id", rec.ID.String()), slog.Any("error", err))
		}
	}
	o.ordinal = 0
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ".wav"
	default:
		return ".bin"
	}
}
