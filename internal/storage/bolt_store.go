package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	tokenBucket      = "tokens"
	snapshotBucket   = "snapshots"
	expiryValueBytes = 8
)

// boltStore keeps tokens and snapshots in two bbolt buckets.
// Values are an 8-byte big-endian unix expiry followed by the payload.
//
// The file is opened for each operation and closed right after, so the
// exclusive bbolt lock is only held briefly. A long-running watcher and a
// `token set` from another process can then share one file.
type boltStore struct {
	path            string
	lockTimeout     time.Duration
	mu              sync.Mutex
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	snapshotTTL     time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

const defaultLockTimeout = 5 * time.Second

// openBolt creates the file and its buckets, then releases it.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	store := &boltStore{
		path:            path,
		lockTimeout:     defaultLockTimeout,
		snapshotTTL:     opts.SnapshotTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	if err := store.update(func(tx *bolt.Tx) error {
		for _, name := range []string{tokenBucket, snapshotBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close is a no-op; no file handle outlives an operation.
func (b *boltStore) Close() error {
	return nil
}

// withDB opens the file, runs fn and closes it. Opens are serialized in
// process because bbolt's flock also excludes a second handle of the same
// process.
func (b *boltStore) withDB(fn func(db *bolt.DB) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := bolt.Open(b.path, 0o600, &bolt.Options{Timeout: b.lockTimeout})
	if err != nil {
		return fmt.Errorf("open bbolt db: %w", err)
	}
	if err := fn(db); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

func (b *boltStore) update(fn func(tx *bolt.Tx) error) error {
	return b.withDB(func(db *bolt.DB) error { return db.Update(fn) })
}

func (b *boltStore) view(fn func(tx *bolt.Tx) error) error {
	return b.withDB(func(db *bolt.DB) error { return db.View(fn) })
}

// SaveToken stores token under key, replacing any previous value.
func (b *boltStore) SaveToken(key, token string, expiresAt time.Time) error {
	return b.update(func(tx *bolt.Tx) error {
		tokens, err := bucket(tx, tokenBucket)
		if err != nil {
			return err
		}
		return tokens.Put([]byte(key), encodeEntry(expiresAt, []byte(token)))
	})
}

// LoadToken reads the token stored under key. Expired tokens are still
// returned so callers can tell "expired" from "missing".
func (b *boltStore) LoadToken(key string) (token string, expiresAt time.Time, found bool, err error) {
	err = b.view(func(tx *bolt.Tx) error {
		tokens, err := bucket(tx, tokenBucket)
		if err != nil {
			return err
		}
		value := tokens.Get([]byte(key))
		if value == nil {
			return nil
		}
		exp, payload, ok := decodeEntry(value)
		if !ok {
			return fmt.Errorf("token entry %q is corrupt", key)
		}
		token, expiresAt, found = string(payload), exp, true
		return nil
	})
	return token, expiresAt, found, err
}

// SeenSnapshot reports whether digest is the unexpired fingerprint stored
// for vin. Expired entries are removed by the periodic sweep.
func (b *boltStore) SeenSnapshot(vin, digest string) (bool, error) {
	now := b.now()
	b.sweepIfDue(now)

	var seen bool
	err := b.view(func(tx *bolt.Tx) error {
		snapshots, err := bucket(tx, snapshotBucket)
		if err != nil {
			return err
		}
		expiry, payload, ok := decodeEntry(snapshots.Get([]byte(vin)))
		seen = ok && expiry.After(now) && string(payload) == digest
		return nil
	})
	return seen, err
}

// MarkSnapshot records digest as the last published fingerprint for vin.
func (b *boltStore) MarkSnapshot(vin, digest string) error {
	now := b.now()
	b.sweepIfDue(now)

	return b.update(func(tx *bolt.Tx) error {
		snapshots, err := bucket(tx, snapshotBucket)
		if err != nil {
			return err
		}
		return snapshots.Put([]byte(vin), encodeEntry(now.Add(b.snapshotTTL), []byte(digest)))
	})
}

// sweepIfDue runs sweep at most once per cleanup interval. A failed sweep is
// retried on the next call; it never fails the caller's operation.
func (b *boltStore) sweepIfDue(now time.Time) {
	if now.Unix()-b.lastCleanup.Load() < int64(b.cleanupInterval/time.Second) {
		return
	}
	if !b.cleanupMu.TryLock() {
		return
	}
	defer b.cleanupMu.Unlock()

	if err := b.update(func(tx *bolt.Tx) error { return sweep(tx, now) }); err == nil {
		b.lastCleanup.Store(now.Unix())
	}
}

// sweep deletes expired and undecodable entries from every bucket.
func sweep(tx *bolt.Tx, now time.Time) error {
	for _, name := range []string{snapshotBucket, tokenBucket} {
		bkt, err := bucket(tx, name)
		if err != nil {
			return err
		}
		c := bkt.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			expiry, _, ok := decodeEntry(v)
			if ok && (expiry.IsZero() || expiry.After(now)) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
	}
	return nil
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	if bkt := tx.Bucket([]byte(name)); bkt != nil {
		return bkt, nil
	}
	return nil, fmt.Errorf("%s bucket missing", name)
}

// encodeEntry prefixes payload with expiresAt; a zero time is stored as 0.
func encodeEntry(expiresAt time.Time, payload []byte) []byte {
	buf := make([]byte, expiryValueBytes+len(payload))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expiresAt.Unix()))
	}
	copy(buf[expiryValueBytes:], payload)
	return buf
}

// decodeEntry splits a stored value into expiry and payload.
func decodeEntry(value []byte) (time.Time, []byte, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, nil, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix < 0 {
		return time.Time{}, nil, false
	}
	var expiry time.Time
	if unix > 0 {
		expiry = time.Unix(unix, 0)
	}
	return expiry, value[expiryValueBytes:], true
}
