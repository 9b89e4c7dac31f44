package credential

import (
	"os"

	"github.com/pkg/errors"
)

// DefaultEnvVar is the environment variable consulted when no key is stored.
const DefaultEnvVar = "OPENAI_API_KEY"

// ErrReadOnly is returned when saving to a backend that cannot be written.
var ErrReadOnly = errors.New("backend is read-only")

// EnvBackend reads the key from an environment variable.
type EnvBackend struct {
	name string
}

// NewEnvBackend creates a backend reading the variable name.
func NewEnvBackend(name string) *EnvBackend {
	if name == "" {
		name = DefaultEnvVar
	}
	return &EnvBackend{name: name}
}

// Name implements Backend.
func (e *EnvBackend) Name() string {
	return "env:" + e.name
}

// Available implements Backend.
func (e *EnvBackend) Available() bool {
	return true
}

// Load implements Backend.
func (e *EnvBackend) Load() (string, error) {
	return os.Getenv(e.name), nil
}

// Save implements Backend. The environment is never written.
func (e *EnvBackend) Save(string) error {
	return ErrReadOnly
}
