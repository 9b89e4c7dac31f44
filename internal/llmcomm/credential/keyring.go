package credential

import (
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const (
	// DefaultKeyringService is the service name of the keyring entry.
	DefaultKeyringService = "llmcomm"
	// KeyringUser is the account name of the keyring entry.
	KeyringUser = "api_key"
)

// KeyringBackend keeps the key in the OS secure store: Credential Manager
// on Windows, Keychain on macOS and the Secret Service on Linux.
type KeyringBackend struct {
	service string
	user    string
}

// NewKeyringBackend creates a keyring backend for service.
func NewKeyringBackend(service string) *KeyringBackend {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringBackend{service: service, user: KeyringUser}
}

// Name implements Backend.
func (k *KeyringBackend) Name() string {
	return "keyring"
}

// Available tests the secure store with a lookup. A missing entry still
// means the store works; any other error means it is unusable here
// (for example no Secret Service on a headless Linux box).
func (k *KeyringBackend) Available() bool {
	_, err := keyring.Get(k.service, k.user)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Load implements Backend.
func (k *KeyringBackend) Load() (string, error) {
	secret, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading keyring")
	}
	return secret, nil
}

// Save implements Backend.
func (k *KeyringBackend) Save(key string) error {
	if key == "" {
		if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return errors.Wrap(err, "deleting keyring entry")
		}
		return nil
	}
	return errors.Wrap(keyring.Set(k.service, k.user, key), "writing keyring")
}
