// Package store provides the durable key/value backends that keep the
// console session across process restarts.
package store

import "fmt"

// Store is a synchronous string key/value store. Writes are visible to the
// next Get with no buffering. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent; that is not an error.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Open returns the Store for backend scoped to the named panel profile.
// An empty backend selects the file store.
func Open(backend, panel string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFile(SessionFilePath(panel)), nil
	case BackendKeyring:
		return NewKeyring(panel), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q, must be one of: file, keyring, memory", backend)
	}
}
