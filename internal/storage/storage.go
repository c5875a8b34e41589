package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists access tokens and the fingerprint of the last published
// driving range per vehicle.
type Store interface {
	Close() error
	SaveToken(key, token string, expiresAt time.Time) error
	// LoadToken returns ok=false when no token is stored under key. A zero
	// expiresAt means the token carries no expiry.
	LoadToken(key string) (token string, expiresAt time.Time, ok bool, err error)
	SeenSnapshot(vin, digest string) (bool, error)
	MarkSnapshot(vin, digest string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// ErrNotPersistent is returned when saving a token to the "none" backend.
var ErrNotPersistent = errors.New("storage backend does not persist data")

type noopStore struct{}

func (noopStore) Close() error                              { return nil }
func (noopStore) SaveToken(string, string, time.Time) error { return ErrNotPersistent }
func (noopStore) LoadToken(string) (string, time.Time, bool, error) {
	return "", time.Time{}, false, nil
}
func (noopStore) SeenSnapshot(string, string) (bool, error) { return false, nil }
func (noopStore) MarkSnapshot(string, string) error         { return nil }
