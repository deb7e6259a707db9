package service

import (
	"context"

	"voiceid/internal/domain/entity"
)

// RegisterInput carries the fields for initiating a registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
}

// AuthAPI is the submission collaborator: every call carries form fields or
// audio payloads and returns either a fresh credential or a structured error.
// The voice matching behind it is a black box.
type AuthAPI interface {
	// Login exchanges email and password for a step-up credential plus the
	// challenge phrase to speak.
	Login(ctx context.Context, email, password string) (*entity.IssuedCredential, error)

	// Register initiates registration and returns an onboarding credential
	// plus the enrollment phrase.
	Register(ctx context.Context, input RegisterInput) (*entity.IssuedCredential, error)

	// EnrollVoice submits the collected enrollment clips under an onboarding
	// credential and returns a full-access credential.
	EnrollVoice(ctx context.Context, token string, clips []entity.AudioClip) (*entity.IssuedCredential, error)

	// VerifyVoice submits one verification clip under a step-up credential
	// and returns a full-access credential.
	VerifyVoice(ctx context.Context, token string, clip entity.AudioClip) (*entity.IssuedCredential, error)
}

// ProfileAPI is the profile collaborator consulted once a session becomes
// fully authenticated.
type ProfileAPI interface {
	Me(ctx context.Context, token string) (*entity.Profile, error)
}
