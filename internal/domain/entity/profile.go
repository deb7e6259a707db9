package entity

import "github.com/google/uuid"

// Profile is the user record returned by the profile endpoint once a session
// is fully authenticated.
type Profile struct {
	ID      uuid.UUID
	Email   string
	Name    string
	Surname string
}

// AudioClip is a labeled audio payload handed to the submission collaborator.
// It carries the finalized buffer, never an ephemeral playback handle.
type AudioClip struct {
	Filename string
	MIMEType string
	Data     []byte
}

// IssuedCredential is the server's answer to a successful login, registration,
// enrollment or verification: a fresh bearer token, optionally accompanied by
// the challenge phrase the user must speak next.
type IssuedCredential struct {
	Token     string
	Phrase    string
	ExpiresIn int // seconds
}
