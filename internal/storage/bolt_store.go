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
	harvestBucket = "harvested_reports"
	// values are an 8-byte big-endian expiry followed by the location string
	expiryPrefixBytes = 8
)

// boltStore is the bbolt-backed harvest ledger.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	entryTTL        time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(harvestBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Lookup returns the live ledger entry for key. Expired entries are removed
// and reported as absent.
func (b *boltStore) Lookup(key string) (Entry, bool, error) {
	if b == nil || b.db == nil {
		return Entry{}, false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return Entry{}, false, err
	}

	var (
		entry Entry
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(harvestBucket))
		if bucket == nil {
			return fmt.Errorf("harvest bucket missing")
		}

		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}

		e, ok := decodeEntry(value)
		if !ok || !e.ExpiresAt.After(now) {
			return bucket.Delete(k)
		}
		entry, found = e, true
		return nil
	})
	return entry, found, err
}

// MarkHarvested records key as delivered to location.
func (b *boltStore) MarkHarvested(key, location string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(harvestBucket))
		if bucket == nil {
			return fmt.Errorf("harvest bucket missing")
		}
		return bucket.Put([]byte(key), encodeEntry(Entry{
			Location:  location,
			ExpiresAt: now.Add(b.entryTTL),
		}))
	})
}

// maybeCleanupExpired drops expired ledger entries at most once per cleanup interval.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(harvestBucket))
		if bucket == nil {
			return fmt.Errorf("harvest bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			e, ok := decodeEntry(v)
			if !ok || !e.ExpiresAt.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, expiryPrefixBytes+len(e.Location))
	binary.BigEndian.PutUint64(buf, uint64(e.ExpiresAt.Unix()))
	copy(buf[expiryPrefixBytes:], e.Location)
	return buf
}

func decodeEntry(value []byte) (Entry, bool) {
	if len(value) < expiryPrefixBytes {
		return Entry{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryPrefixBytes]))
	if unix <= 0 {
		return Entry{}, false
	}
	return Entry{
		Location:  string(value[expiryPrefixBytes:]),
		ExpiresAt: time.Unix(unix, 0),
	}, true
}
