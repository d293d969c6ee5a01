package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltBackend keeps one bucket per Source in a bbolt file.
type BoltBackend struct {
	db *bolt.DB
}

type boltEntry struct {
	Value       bool      `json:"value"`
	Title       string    `json:"title,omitempty"`
	RequestDate time.Time `json:"request_date,omitzero"`
	CheckedAt   time.Time `json:"checked_at"`
}

// OpenBolt opens (creating if needed) the bbolt cache file at path.
func OpenBolt(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, source := range Sources {
			if _, err := tx.CreateBucketIfNotExists([]byte(source)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache buckets: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

// Close releases the bbolt file lock.
func (b *BoltBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltBackend) LoadFact(_ context.Context, source Source, key string) (Entry, bool, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(source))
		if bucket == nil {
			return fmt.Errorf("unknown cache source %q", source)
		}
		if v := bucket.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return Entry{}, false, err
	}
	var stored boltEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s/%s: %w", source, key, err)
	}
	return Entry{
		Fact:      Fact{Value: stored.Value, Title: stored.Title, RequestDate: stored.RequestDate},
		CheckedAt: stored.CheckedAt,
	}, true, nil
}

func (b *BoltBackend) StoreFacts(_ context.Context, source Source, entries map[string]Entry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(source))
		if bucket == nil {
			return fmt.Errorf("unknown cache source %q", source)
		}
		for key, entry := range entries {
			data, err := json.Marshal(boltEntry{
				Value:       entry.Value,
				Title:       entry.Title,
				RequestDate: entry.RequestDate.UTC(),
				CheckedAt:   entry.CheckedAt.UTC(),
			})
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltBackend) CacheStats(_ context.Context) ([]SourceStats, error) {
	stats := make([]SourceStats, 0, len(Sources))
	err := b.db.View(func(tx *bolt.Tx) error {
		for _, source := range Sources {
			summary := SourceStats{Source: source}
			bucket := tx.Bucket([]byte(source))
			if bucket == nil {
				stats = append(stats, summary)
				continue
			}
			err := bucket.ForEach(func(_, v []byte) error {
				var stored boltEntry
				if err := json.Unmarshal(v, &stored); err != nil {
					return err
				}
				summary.Entries++
				if stored.Value {
					summary.Positive++
				}
				if summary.Oldest.IsZero() || stored.CheckedAt.Before(summary.Oldest) {
					summary.Oldest = stored.CheckedAt
				}
				if stored.CheckedAt.After(summary.Newest) {
					summary.Newest = stored.CheckedAt
				}
				return nil
			})
			if err != nil {
				return err
			}
			stats = append(stats, summary)
		}
		return nil
	})
	return stats, err
}

func (b *BoltBackend) ClearFacts(_ context.Context, source Source) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		name := []byte(source)
		if bucket := tx.Bucket(name); bucket != nil {
			removed = bucket.Stats().KeyN
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(name)
		return err
	})
	return removed, err
}
