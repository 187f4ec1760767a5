// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shillscope/internal/logging"
)

// GarbageCollector is implemented by caches with a value-log GC
// cycle, such as the Badger poster cache.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// CacheGCService periodically reclaims space in the persistent poster
// cache. Badger requires explicit value-log GC; without it the cache
// directory grows without bound.
type CacheGCService struct {
	gc       GarbageCollector
	interval time.Duration
	ratio    float64
	log      zerolog.Logger
}

// NewCacheGCService creates the GC loop. A non-positive interval
// falls back to ten minutes.
func NewCacheGCService(gc GarbageCollector, interval time.Duration) *CacheGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CacheGCService{
		gc:       gc,
		interval: interval,
		ratio:    0.5,
		log:      logging.WithComponent("cache-gc"),
	}
}

// Serve implements suture.Service.
func (s *CacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.gc.RunGC(s.ratio)
			switch {
			case err == nil:
				s.log.Debug().Msg("value log GC reclaimed space")
			case errors.Is(err, badger.ErrNoRewrite):
				// Nothing to reclaim this cycle.
			default:
				s.log.Warn().Err(err).Msg("value log GC failed")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheGCService) String() string {
	return "poster-cache-gc"
}
