// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package attack builds shilled rating stores by injecting fake user
// profiles. The transformation is pure: the input store is never
// modified, and the same input plus the same seed always produces the
// same output store.
package attack

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/ratings"
)

// Params describes a push attack against one target item.
type Params struct {
	// TargetItem is the item the attacker wants promoted.
	TargetItem int

	// Profiles is the number of fake users to inject.
	Profiles int

	// Fillers is the number of filler ratings per fake profile, on
	// random existing items other than the target.
	Fillers int

	// Seed drives the filler-item choice. The same seed reproduces
	// the attack bit for bit.
	Seed int64
}

// Inject returns a new store containing every rating of the input
// store plus the attack profiles: Profiles fake users with IDs above
// the store's current maximum, each rating TargetItem at the scale
// maximum and Fillers distinct random existing items at the rounded
// global mean.
//
// Non-positive Profiles or Fillers disables the attack and returns
// the input store unchanged. An unknown target item is an error, a
// mistyped attack config should fail loudly rather than shill a
// nonexistent item.
func Inject(store *ratings.Store, p Params) (*ratings.Store, error) {
	if p.Profiles <= 0 || p.Fillers <= 0 {
		return store, nil
	}
	if len(store.RatedBy(p.TargetItem)) == 0 {
		return nil, fmt.Errorf("attack: target item %d has no ratings in the store", p.TargetItem)
	}

	scale := store.Scale()
	fillerScore := scale.Clamp(math.Round(store.GlobalMean()))

	// Filler candidates are every existing item except the target.
	items := store.Items()
	candidates := make([]int, 0, len(items)-1)
	for _, item := range items {
		if item != p.TargetItem {
			candidates = append(candidates, item)
		}
	}
	fillers := p.Fillers
	if fillers > len(candidates) {
		fillers = len(candidates)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	triples := store.Triples()
	nextUser := store.MaxUser() + 1

	for i := 0; i < p.Profiles; i++ {
		user := nextUser + i
		triples = append(triples, ratings.Rating{User: user, Item: p.TargetItem, Score: scale.Max})

		for _, idx := range rng.Perm(len(candidates))[:fillers] {
			triples = append(triples, ratings.Rating{User: user, Item: candidates[idx], Score: fillerScore})
		}
	}

	attacked, err := ratings.New(triples, scale)
	if err != nil {
		return nil, fmt.Errorf("attack: build shilled store: %w", err)
	}

	log := logging.WithComponent("attack")
	log.Info().
		Int("target_item", p.TargetItem).
		Int("profiles", p.Profiles).
		Int("fillers", fillers).
		Int64("seed", p.Seed).
		Int("ratings_before", store.NumRatings()).
		Int("ratings_after", attacked.NumRatings()).
		Msg("attack profiles injected")

	return attacked, nil
}

// PickTarget selects an attack target the way a real attacker would:
// a popular item, chosen at random (seeded) from the items with at
// least minRatings ratings. Falls back to the single most-rated item
// when nothing clears the threshold.
func PickTarget(store *ratings.Store, minRatings int, seed int64) (int, error) {
	items := store.Items()
	if len(items) == 0 {
		return 0, fmt.Errorf("attack: cannot pick a target from an empty store")
	}

	popular := make([]int, 0, len(items))
	for _, item := range items {
		if len(store.RatedBy(item)) >= minRatings {
			popular = append(popular, item)
		}
	}

	if len(popular) == 0 {
		best, bestCount := items[0], 0
		for _, item := range items {
			if n := len(store.RatedBy(item)); n > bestCount {
				best, bestCount = item, n
			}
		}
		return best, nil
	}

	sort.Ints(popular)
	rng := rand.New(rand.NewSource(seed))
	return popular[rng.Intn(len(popular))], nil
}
