package storage

import (
	"fmt"
	"strings"
	"time"
)

// Entry is the ledger record for one delivered report.
type Entry struct {
	Location  string    // where the sink put the payload
	ExpiresAt time.Time // after this the report may be harvested again
}

// Store is the harvest ledger: it remembers which reports were already delivered.
type Store interface {
	Close() error
	Lookup(key string) (Entry, bool, error)
	MarkHarvested(key, location string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	// The API serves at most a year of history, so entries outlive that window.
	defaultEntryTTL        = 400 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
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
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) Lookup(string) (Entry, bool, error) { return Entry{}, false, nil }
func (noopStore) MarkHarvested(string, string) error { return nil }
