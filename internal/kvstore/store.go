// Package kvstore is the persistence adapter behind the gamification stores: namespaced
// string keys mapped to JSON values, with pluggable backends.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get when the key has never been written or was deleted.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrMalformed wraps JSON decode failures of a stored value.
	ErrMalformed = errors.New("kvstore: malformed value")
)

// Store is a durable key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Op is the kind of a Change.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Change describes a write observed on the backend. Value is nil for deletes and may be nil
// for sets when the backend cannot cheaply provide it.
type Change struct {
	Key   string
	Op    Op
	Value []byte
}

// Watcher is implemented by backends that can report writes made by other processes or
// other store instances sharing the same data.
type Watcher interface {
	// Watch delivers changes to fn until ctx is cancelled. It returns once delivery is set up.
	Watch(ctx context.Context, fn func(Change)) error
}

// Key joins namespace parts with ':' after trimming blanks.
func Key(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, ":")
}

// GetJSON decodes the value under key into dst. It reports found=false with a nil error
// when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
