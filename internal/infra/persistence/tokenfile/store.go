// Package tokenfile persists the client's two named slots (credential and
// challenge phrase) in a single state file. The file is the client's only
// durable storage.
package tokenfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"voiceid/internal/domain/repository"

	"github.com/pkg/errors"
)

const stateFileName = "session.json"

// state is the on-disk shape of the two slots.
type state struct {
	Credential string `json:"credential,omitempty"`
	Phrase     string `json:"phrase,omitempty"`
}

// fileStore is a concrete implementation of the CredentialStore interface.
type fileStore struct {
	path string

	mu sync.Mutex
}

// New is the constructor for fileStore. dir is created if missing, private to
// the user.
func New(dir string) (repository.CredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create state directory")
	}

	return &fileStore{path: filepath.Join(dir, stateFileName)}, nil
}

// SaveCredential overwrites the credential slot with the raw token.
func (s *fileStore) SaveCredential(token string) error {
	return s.update(func(st *state) { st.Credential = token })
}

// LoadCredential returns the persisted credential, or ErrSlotEmpty.
func (s *fileStore) LoadCredential() (string, error) {
	st, err := s.read()
	if err != nil {
		return "", err
	}
	if st.Credential == "" {
		return "", errors.Wrap(repository.ErrSlotEmpty, "credential")
	}

	return st.Credential, nil
}

// ClearCredential empties the credential slot.
func (s *fileStore) ClearCredential() error {
	return s.update(func(st *state) { st.Credential = "" })
}

// SavePhrase overwrites the challenge-phrase slot.
func (s *fileStore) SavePhrase(phrase string) error {
	return s.update(func(st *state) { st.Phrase = phrase })
}

// LoadPhrase returns the persisted challenge phrase, or ErrSlotEmpty.
func (s *fileStore) LoadPhrase() (string, error) {
	st, err := s.read()
	if err != nil {
		return "", err
	}
	if st.Phrase == "" {
		return "", errors.Wrap(repository.ErrSlotEmpty, "phrase")
	}

	return st.Phrase, nil
}

// ClearPhrase empties the challenge-phrase slot.
func (s *fileStore) ClearPhrase() error {
	return s.update(func(st *state) { st.Phrase = "" })
}

func (s *fileStore) read() (*state, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked()
}

func (s *fileStore) readLocked() (*state, error) {
	st := &state{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}

		return nil, errors.Wrap(err, "failed to read state file")
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, errors.Wrap(err, "state file is corrupt")
	}

	return st, nil
}

// update rewrites the state file atomically: a crash mid-write must never
// leave a truncated credential behind.
func (s *fileStore) update(mutate func(*state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil {
		// A corrupt file is replaced rather than kept around.
		st = &state{}
	}
	mutate(st)

	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write state file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "failed to replace state file")
	}

	return nil
}
