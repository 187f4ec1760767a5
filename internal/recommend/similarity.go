// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package recommend implements user-based collaborative filtering:
// cosine similarity between user rating profiles, weighted-average
// score prediction, and top-K recommendation.
//
// All math runs against an immutable ratings.Store snapshot, so one
// engine per store is safe for concurrent use.
package recommend

import (
	"math"
	"sync"

	"github.com/tomtom215/shillscope/internal/ratings"
)

// Engine computes user-user similarities over a single store snapshot.
//
// Similarity is cosine restricted to the intersection of co-rated
// items: the dot product and BOTH norms use only items rated by both
// users. With an all-positive rating scale this keeps similarity in
// [0, 1], which in turn bounds weighted-average predictions by the
// neighbours' own scores.
type Engine struct {
	store *ratings.Store

	mu    sync.RWMutex
	cache map[[2]int]float64
}

// NewEngine creates a similarity engine bound to store.
func NewEngine(store *ratings.Store) *Engine {
	return &Engine{
		store: store,
		cache: make(map[[2]int]float64),
	}
}

// Store returns the snapshot the engine is bound to.
func (e *Engine) Store() *ratings.Store {
	return e.store
}

// Similarity returns the cosine similarity between two users over
// their co-rated items. It is symmetric, returns 1 for a user with
// itself (when they have rated anything), and 0 whenever the
// intersection is empty, a user is unknown, or a restricted norm is
// zero. Zero is a safe value: prediction treats it as "no neighbour".
func (e *Engine) Similarity(a, b int) float64 {
	key := pairKey(a, b)

	e.mu.RLock()
	sim, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return sim
	}

	sim = e.compute(a, b)

	e.mu.Lock()
	e.cache[key] = sim
	e.mu.Unlock()
	return sim
}

func (e *Engine) compute(a, b int) float64 {
	va := e.store.RatingsOf(a)
	vb := e.store.RatingsOf(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	// Iterate the smaller profile against a map of the larger one.
	if len(vb) < len(va) {
		va, vb = vb, va
	}
	other := make(map[int]float64, len(vb))
	for _, r := range vb {
		other[r.Item] = r.Score
	}

	var dot, normA, normB float64
	for _, r := range va {
		s, ok := other[r.Item]
		if !ok {
			continue
		}
		dot += r.Score * s
		normA += r.Score * r.Score
		normB += s * s
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// pairKey gives both orderings of a user pair the same cache slot.
func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
