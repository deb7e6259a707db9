// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"
	"voiceid/internal/usecase"

	"github.com/pkg/errors"
)

const pumpBufferSize = 4096

// captureEngine implements the CaptureUsecase interface. It owns the capture
// device, the in-flight encode session, the finished recording and the two
// one-second counters; the mutex serializes every state transition so event
// order is exactly call order.
type captureEngine struct {
	device service.CaptureDevice
	codec  service.AudioEncoder
	player service.Player
	clock  service.Clock
	prober service.DurationProber
	logger *slog.Logger

	mu       sync.Mutex
	state    entity.CaptureState
	startGen int
	stream   service.DeviceStream
	session  service.EncodeSession
	current  *entity.Recording

	elapsed  int
	recStop  chan struct{}
	pumpDone chan struct{}

	playPos    int
	playStop   chan struct{}
	playCancel context.CancelFunc
	playGen    int

	pumpErrMu sync.Mutex
	pumpErr   error
}

// NewCaptureEngine is the constructor for captureEngine.
func NewCaptureEngine(
	device service.CaptureDevice,
	codec service.AudioEncoder,
	player service.Player,
	clock service.Clock,
	prober service.DurationProber,
	logger *slog.Logger,
) usecase.CaptureUsecase {
	return &captureEngine{
		device: device,
		codec:  codec,
		player: player,
		clock:  clock,
		prober: prober,
		logger: logger,
		state:  entity.CaptureIdle,
	}
}

// Start acquires the device and begins encoding.
func (eng *captureEngine) Start(ctx context.Context) error {
	eng.mu.Lock()
	if eng.state != entity.CaptureIdle {
		state := eng.state
		eng.mu.Unlock()

		return errors.Wrapf(domainerrors.ErrCaptureBusy, "cannot start while %s", state)
	}
	if !eng.codec.Ready() {
		eng.mu.Unlock()

		return errors.Wrap(domainerrors.ErrEncoderNotReady, "start refused")
	}
	eng.state = entity.CaptureRequestingDevice
	gen := eng.startGen
	eng.mu.Unlock()

	// The permission prompt may suspend; the mutex is not held here so
	// accessors keep answering while the platform decides. Teardown bumps
	// the generation, so a stale start must not claim the device.
	stream, err := eng.device.Open(ctx)
	if err != nil {
		eng.mu.Lock()
		if eng.startGen == gen {
			eng.state = entity.CaptureIdle
		}
		eng.mu.Unlock()
		eng.logger.Warn("Capture device access denied", slog.Any("error", err))

		return errors.Wrap(domainerrors.ErrDeviceAccess, err.Error())
	}

	session, err := eng.codec.NewSession(stream.SampleRate(), stream.Channels())
	if err != nil {
		if cerr := stream.Close(); cerr != nil {
			eng.logger.Warn("Failed to release capture device", slog.Any("error", cerr))
		}
		eng.mu.Lock()
		if eng.startGen == gen {
			eng.state = entity.CaptureIdle
		}
		eng.mu.Unlock()

		return errors.Wrap(err, "failed to open encode session")
	}

	eng.mu.Lock()
	if eng.startGen != gen {
		eng.mu.Unlock()
		if cerr := stream.Close(); cerr != nil {
			eng.logger.Warn("Failed to release capture device", slog.Any("error", cerr))
		}

		return errors.Wrap(domainerrors.ErrCaptureBusy, "engine torn down while acquiring device")
	}
	eng.stream = stream
	eng.session = session
	eng.elapsed = 0
	eng.state = entity.CaptureRecording
	eng.startElapsedCounterLocked()
	eng.pumpDone = make(chan struct{})
	eng.setPumpErr(nil)
	go eng.pump(stream, session, eng.pumpDone)
	eng.mu.Unlock()

	eng.logger.Info("Recording started",
		slog.Int("sample_rate", stream.SampleRate()),
		slog.Int("channels", stream.Channels()))

	return nil
}

// Stop finalizes the in-flight buffer into one Recording. While playing it
// halts playback instead; otherwise, while not recording, it is a no-op.
func (eng *captureEngine) Stop() (*entity.Recording, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	switch eng.state {
	case entity.CapturePlaying:
		eng.haltPlaybackLocked()

		return nil, nil
	case entity.CaptureRecording:
	default:
		return nil, nil
	}

	eng.stopElapsedCounterLocked()

	// Release the device before finalizing so the platform never keeps a
	// stale "microphone active" indicator, even if finalize fails below.
	if err := eng.stream.Close(); err != nil {
		eng.logger.Warn("Failed to release capture device", slog.Any("error", err))
	}
	<-eng.pumpDone
	if perr := eng.takePumpErr(); perr != nil {
		eng.logger.Warn("Capture stream ended abnormally", slog.Any("error", perr))
	}

	session := eng.session
	eng.stream = nil
	eng.session = nil

	data, mimeType, err := session.Finalize()
	if err != nil {
		eng.state = entity.CaptureIdle

		return nil, errors.Wrap(err, "failed to finalize recording")
	}

	rec := entity.NewRecording(eng.captureFilename(), mimeType, data)
	rec.SetProvisionalDuration(float64(eng.elapsed))
	if eng.prober != nil {
		if seconds, perr := eng.prober.Probe(data, mimeType); perr == nil {
			rec.BackfillDecodedDuration(seconds)
		} else {
			eng.logger.Debug("Decoded duration unavailable", slog.Any("error", perr))
		}
	}

	eng.current = rec
	eng.state = entity.CaptureStopped
	eng.logger.Info("Recording finished",
		slog.String("recording_id", rec.ID.String()),
		slog.Int("size_bytes", rec.SizeBytes),
		slog.Float64("duration_seconds", rec.DurationSeconds()))

	return rec, nil
}

// Play streams the finished recording to the player.
func (eng *captureEngine) Play(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.state != entity.CaptureStopped || eng.current == nil {
		return errors.Wrapf(domainerrors.ErrNoRecording, "cannot play while %s", eng.state)
	}

	reader, err := eng.current.Handle().Open()
	if err != nil {
		return errors.Wrap(err, "failed to open playback handle")
	}

	playCtx, cancel := context.WithCancel(ctx)
	eng.playCancel = cancel
	eng.playGen++
	gen := eng.playGen
	eng.playPos = 0
	eng.state = entity.CapturePlaying
	eng.startPlaybackCounterLocked()

	mimeType := eng.current.MIMEType
	go func() {
		perr := eng.player.Play(playCtx, reader, mimeType)
		eng.finishPlayback(gen, perr)
	}()

	return nil
}

// Pause halts an in-flight playback; not playing is a no-op.
func (eng *captureEngine) Pause() error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.state != entity.CapturePlaying {
		return nil
	}
	eng.haltPlaybackLocked()

	return nil
}

// Discard releases the finished recording; without one it is a no-op.
func (eng *captureEngine) Discard() error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.state != entity.CaptureStopped || eng.current == nil {
		return nil
	}

	rec := eng.current
	eng.current = nil
	eng.elapsed = 0
	eng.state = entity.CaptureIdle

	if err := rec.Release(); err != nil {
		return errors.Wrap(err, "failed to release recording")
	}
	eng.logger.Debug("Recording discarded", slog.String("recording_id", rec.ID.String()))

	return nil
}

// Take transfers the finished recording to the caller without revoking it.
func (eng *captureEngine) Take() *entity.Recording {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.state != entity.CaptureStopped || eng.current == nil {
		return nil
	}

	rec := eng.current
	eng.current = nil
	eng.elapsed = 0
	eng.state = entity.CaptureIdle

	return rec
}

// State returns the engine's current machine state.
func (eng *captureEngine) State() entity.CaptureState {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	return eng.state
}

// ElapsedSeconds returns the recording counter value.
func (eng *captureEngine) ElapsedSeconds() int {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	return eng.elapsed
}

// PlaybackSeconds returns the playback position counter value.
func (eng *captureEngine) PlaybackSeconds() int {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	return eng.playPos
}

// Teardown stops all counters and releases the device and any handle
// unconditionally. The engine ends idle.
func (eng *captureEngine) Teardown() {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	// Invalidates any Start still waiting on the device.
	eng.startGen++
	eng.stopElapsedCounterLocked()
	if eng.state == entity.CapturePlaying {
		eng.haltPlaybackLocked()
	}
	if eng.stream != nil {
		if err := eng.stream.Close(); err != nil {
			eng.logger.Warn("Failed to release capture device", slog.Any("error", err))
		}
		<-eng.pumpDone
		eng.stream = nil
		eng.session = nil
	}
	if eng.current != nil {
		if err := eng.current.Release(); err != nil {
			eng.logger.Warn("Failed to release recording", slog.Any("error", err))
		}
		eng.current = nil
	}
	eng.elapsed = 0
	eng.state = entity.CaptureIdle
}

// pump copies PCM frames from the device into the encode session until the
// stream is closed. It never touches the engine mutex.
func (eng *captureEngine) pump(stream service.DeviceStream, session service.EncodeSession, done chan struct{}) {
	defer close(done)

	buf := make([]byte, pumpBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := session.Write(buf[:n]); werr != nil {
				eng.setPumpErr(errors.Wrap(werr, "encode write failed"))

				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
				eng.setPumpErr(errors.Wrap(err, "device read failed"))
			}

			return
		}
	}
}

func (eng *captureEngine) setPumpErr(err error) {
	eng.pumpErrMu.Lock()
	eng.pumpErr = err
	eng.pumpErrMu.Unlock()
}

func (eng *captureEngine) takePumpErr() error {
	eng.pumpErrMu.Lock()
	defer eng.pumpErrMu.Unlock()
	err := eng.pumpErr
	eng.pumpErr = nil

	return err
}

// startElapsedCounterLocked starts the one-second recording counter. Only one
// counter runs at a time; the playback counter is never active alongside it.
func (eng *captureEngine) startElapsedCounterLocked() {
	ticker := eng.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	eng.recStop = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				eng.mu.Lock()
				if eng.state == entity.CaptureRecording {
					eng.elapsed++
				}
				eng.mu.Unlock()
			}
		}
	}()
	go func() {
		<-stop
		ticker.Stop()
	}()
}

func (eng *captureEngine) stopElapsedCounterLocked() {
	if eng.recStop != nil {
		close(eng.recStop)
		eng.recStop = nil
	}
}

func (eng *captureEngine) startPlaybackCounterLocked() {
	ticker := eng.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	eng.playStop = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				eng.mu.Lock()
				if eng.state == entity.CapturePlaying {
					eng.playPos++
				}
				eng.mu.Unlock()
			}
		}
	}()
	go func() {
		<-stop
		ticker.Stop()
	}()
}

func (eng *captureEngine) stopPlaybackCounterLocked() {
	if eng.playStop != nil {
		close(eng.playStop)
		eng.playStop = nil
	}
}

// haltPlaybackLocked cancels the in-flight playback and returns to Stopped.
// Bumping the generation makes the playback goroutine's own completion a
// no-op, so the transition happens exactly once.
func (eng *captureEngine) haltPlaybackLocked() {
	eng.stopPlaybackCounterLocked()
	if eng.playCancel != nil {
		eng.playCancel()
		eng.playCancel = nil
	}
	eng.playGen++
	eng.state = entity.CaptureStopped
}

// finishPlayback handles the player goroutine's completion. A stale
// generation means Pause or Teardown already performed the transition.
func (eng *captureEngine) finishPlayback(gen int, err error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if eng.playGen != gen || eng.state != entity.CapturePlaying {
		return
	}
	eng.stopPlaybackCounterLocked()
	eng.playCancel = nil
	eng.state = entity.CaptureStopped
	if err != nil && !errors.Is(err, context.Canceled) {
		eng.logger.Warn("Playback ended abnormally", slog.Any("error", err))
	}
}

func (eng *captureEngine) captureFilename() string {
	return fmt.Sprintf("capture-%s", eng.clock.Now().Format("150405"))
}
