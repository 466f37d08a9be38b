package store

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringServicePrefix = "gostctl"

// Keyring is a Store backed by the OS keychain/credential manager. Each
// panel profile gets its own keyring service so sessions for different
// panels never collide.
type Keyring struct {
	service string
}

// NewKeyring returns a Keyring store for the named panel profile.
func NewKeyring(panel string) *Keyring {
	if panel == "" {
		panel = "default"
	}
	return &Keyring{service: fmt.Sprintf("%s:%s", keyringServicePrefix, panel)}
}

// Service returns the keyring service name entries are stored under.
func (k *Keyring) Service() string {
	return k.service
}

func (k *Keyring) Get(key string) (string, bool, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, true, nil
}

func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *Keyring) Remove(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
