package entity

// CaptureState represents the audio capture engine's machine state.
// The engine holds exactly one value at a time.
type CaptureState string

const (
	// CaptureIdle means no recording exists and the device is released.
	CaptureIdle CaptureState = "IDLE"
	// CaptureRequestingDevice means microphone access has been requested
	// and the engine is waiting for the platform to grant or deny it.
	CaptureRequestingDevice CaptureState = "REQUESTING_DEVICE"
	// CaptureRecording means the device is open and frames are being encoded.
	CaptureRecording CaptureState = "RECORDING"
	// CaptureStopped means a finished recording is available for playback,
	// discard or collection.
	CaptureStopped CaptureState = "STOPPED"
	// CapturePlaying means the finished recording is being streamed to the player.
	CapturePlaying CaptureState = "PLAYING"
)
