// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package recommend

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shillscope/internal/logging"
)

// ScoredItem is one recommended item with its predicted score.
type ScoredItem struct {
	Item  int     `json:"item_id"`
	Score float64 `json:"score"`
}

// Service produces top-K recommendations from a similarity engine.
// Candidate scoring is fanned out across a fixed worker pool because
// every candidate prediction is independent.
type Service struct {
	workers int
	log     zerolog.Logger
}

// NewService creates a recommendation service with the given worker
// count. Non-positive counts fall back to 4.
func NewService(workers int) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		workers: workers,
		log:     logging.WithComponent("recommend"),
	}
}

// Recommend returns the top-K recommendations for user from the
// engine's store: every item the user has not rated, scored by
// Predict, with unpredictable items dropped, ordered by score
// descending and item ID ascending on ties, truncated to topK.
//
// An unknown user or non-positive topK yields an empty list, not an
// error. The only error condition is context cancellation.
func (s *Service) Recommend(ctx context.Context, eng *Engine, user, topK int) ([]ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store := eng.Store()
	if topK <= 0 || !store.HasUser(user) {
		return []ScoredItem{}, nil
	}

	rated := make(map[int]struct{})
	for _, r := range store.RatingsOf(user) {
		rated[r.Item] = struct{}{}
	}

	items := store.Items()
	candidates := make([]int, 0, len(items)-len(rated))
	for _, item := range items {
		if _, ok := rated[item]; !ok {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return []ScoredItem{}, nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		scored = make([]ScoredItem, 0, len(candidates))
	)
	chunkSize := (len(candidates) + s.workers - 1) / s.workers

	for w := 0; w < s.workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(chunk []int) {
			defer wg.Done()

			local := make([]ScoredItem, 0, len(chunk))
			for _, item := range chunk {
				if ctx.Err() != nil {
					return
				}
				if score, ok := eng.Predict(user, item); ok {
					local = append(local, ScoredItem{Item: item, Score: score})
				}
			}

			mu.Lock()
			scored = append(scored, local...)
			mu.Unlock()
		}(candidates[start:end])
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item < scored[j].Item
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	s.log.Debug().
		Int("user", user).
		Int("top_k", topK).
		Int("candidates", len(candidates)).
		Int("returned", len(scored)).
		Msg("recommendations computed")

	return scored, nil
}
