// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"github.com/pkg/errors"
)

// ErrSlotEmpty is returned when a persistence slot holds no value.
var ErrSlotEmpty = errors.New("persistence slot is empty")

// CredentialStore persists the client's only durable state: the current bearer
// credential and the current challenge phrase. The session manager is the sole
// writer; both slots are cleared together only on logout and independently
// otherwise.
type CredentialStore interface {
	// SaveCredential overwrites the credential slot with the raw token.
	SaveCredential(token string) error

	// LoadCredential returns the persisted credential, or ErrSlotEmpty.
	LoadCredential() (string, error)

	// ClearCredential empties the credential slot.
	ClearCredential() error

	// SavePhrase overwrites the challenge-phrase slot.
	SavePhrase(phrase string) error

	// LoadPhrase returns the persisted challenge phrase, or ErrSlotEmpty.
	LoadPhrase() (string, error)

	// ClearPhrase empties the challenge-phrase slot.
	ClearPhrase() error
}
