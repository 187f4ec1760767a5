// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// MemoryPosterCache is an in-process PosterCache for tests and for
// deployments that do not need persistence.
type MemoryPosterCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryPosterCache creates an empty in-memory cache.
func NewMemoryPosterCache() *MemoryPosterCache {
	return &MemoryPosterCache{entries: make(map[string]string)}
}

// Get returns the cached poster URL for key.
func (c *MemoryPosterCache) Get(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Set stores a poster URL, including empty negative entries.
func (c *MemoryPosterCache) Set(key, posterURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = posterURL
	return nil
}

// Close implements PosterCache.
func (c *MemoryPosterCache) Close() error {
	return nil
}

const posterKeyPrefix = "poster:"

// BadgerPosterCache is a BadgerDB-backed PosterCache, so resolved
// posters survive process restarts.
type BadgerPosterCache struct {
	db *badger.DB
}

// NewBadgerPosterCache opens (or creates) a Badger database at path.
func NewBadgerPosterCache(path string) (*BadgerPosterCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open poster cache at %s: %w", path, err)
	}
	return &BadgerPosterCache{db: db}, nil
}

// Get returns the cached poster URL for key.
func (c *BadgerPosterCache) Get(key string) (string, bool, error) {
	var value string
	found := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(posterKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get poster entry: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set stores a poster URL, including empty negative entries.
func (c *BadgerPosterCache) Set(key, posterURL string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(posterKeyPrefix+key), []byte(posterURL))
	})
}

// RunGC triggers one value-log garbage collection cycle. Badger
// reports ErrNoRewrite when there was nothing to reclaim; callers
// should treat that as success.
func (c *BadgerPosterCache) RunGC(discardRatio float64) error {
	return c.db.RunValueLogGC(discardRatio)
}

// Close releases the underlying database.
func (c *BadgerPosterCache) Close() error {
	return c.db.Close()
}

// Interface compliance.
var (
	_ PosterCache = (*MemoryPosterCache)(nil)
	_ PosterCache = (*BadgerPosterCache)(nil)
)
