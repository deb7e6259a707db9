package service

// DurationProber learns a recording's true duration from its decoded audio,
// replacing the wall-clock estimate counted while recording.
type DurationProber interface {
	// Probe returns the clip length in seconds, or an error when the buffer
	// cannot be decoded.
	Probe(data []byte, mimeType string) (float64, error)
}
