// Package credential stores the API key.
//
// A Store tries its backends in order of preference when loading:
// the OS secure store, a key file readable only by the owner, and finally
// an environment variable. Failures in any backend are treated as
// "not found" so that a broken keychain never prevents startup.
package credential

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Backend is a single place an API key can live.
type Backend interface {
	// Name identifies the backend in logs and command output.
	Name() string
	// Available reports whether the backend can be used on this host.
	Available() bool
	// Load returns the stored key, or "" if none is stored.
	Load() (string, error)
	// Save stores key. An empty key removes the stored credential.
	Save(key string) error
}

// Store combines the secure, file and environment backends.
type Store struct {
	secure Backend
	file   Backend
	env    Backend
}

// NewStore creates a store. secure may be nil when the secure store is
// disabled by configuration.
func NewStore(secure, file, env Backend) *Store {
	return &Store{secure: secure, file: file, env: env}
}

// LoadKey returns the first non-blank key found, in order: secure store,
// key file, environment. It returns "" if none is set.
func (s *Store) LoadKey() string {
	for _, b := range s.backends() {
		if !b.Available() {
			continue
		}
		key, err := b.Load()
		if err != nil {
			log.WithError(err).WithField("backend", b.Name()).Debug("failed to load API key")
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			log.WithField("backend", b.Name()).Debug("loaded API key")
			return key
		}
	}
	return ""
}

// SaveKey stores key in the secure store when it is available and in the
// key file otherwise, and returns the name of the backend written. A
// successful secure write removes the key file.
// An empty key is removed from every writable backend. Errors are logged
// and reported as an empty backend name.
func (s *Store) SaveKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		s.clear()
		return ""
	}

	if s.secure != nil && s.secure.Available() {
		err := s.secure.Save(key)
		if err == nil {
			// Drop any plaintext copy left by an earlier fallback.
			if s.file != nil {
				if err := s.file.Save(""); err != nil {
					log.WithError(err).WithField("backend", s.file.Name()).Warn("failed to remove stale key file")
				}
			}
			return s.secure.Name()
		}
		log.WithError(err).WithField("backend", s.secure.Name()).Warn("failed to save API key, falling back to file")
	}

	if s.file == nil {
		return ""
	}
	if err := s.file.Save(key); err != nil {
		log.WithError(err).WithField("backend", s.file.Name()).Warn("failed to save API key")
		return ""
	}
	return s.file.Name()
}

// Source returns the name of the backend that LoadKey would read from,
// or "" if no key is stored anywhere.
func (s *Store) Source() string {
	for _, b := range s.backends() {
		if !b.Available() {
			continue
		}
		if key, err := b.Load(); err == nil && strings.TrimSpace(key) != "" {
			return b.Name()
		}
	}
	return ""
}

func (s *Store) clear() {
	for _, b := range []Backend{s.secure, s.file} {
		if b == nil || !b.Available() {
			continue
		}
		if err := b.Save(""); err != nil {
			log.WithError(err).WithField("backend", b.Name()).Warn("failed to clear API key")
		}
	}
}

func (s *Store) backends() []Backend {
	var backends []Backend
	for _, b := range []Backend{s.secure, s.file, s.env} {
		if b != nil {
			backends = append(backends, b)
		}
	}
	return backends
}
