// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package defense implements a statistical shilling countermeasure.
// Suspicion is decided purely from rating statistics; the filter has
// no access to provenance, so it treats organic and injected profiles
// identically and can misfire on unusually uniform real users. That
// trade-off is the point of the lab.
package defense

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/ratings"
)

// Config holds the flagging thresholds and the clipping strength.
type Config struct {
	// MinRatings is the minimum profile size before a profile can be
	// flagged at all. Small profiles have meaningless statistics.
	MinRatings int `koanf:"min_ratings"`

	// MaxStdDev flags profiles whose rating standard deviation is at
	// or below this value. Injected profiles rate almost everything
	// the same.
	MaxStdDev float64 `koanf:"max_std_dev"`

	// MinExtremeShare flags profiles whose share of scale-extreme
	// ratings (minimum or maximum) is at or above this value.
	MinExtremeShare float64 `koanf:"min_extreme_share"`

	// ClipFactor is how far each flagged rating is pulled toward the
	// global mean, 0 leaves ratings alone and 1 replaces them with
	// the mean.
	ClipFactor float64 `koanf:"clip_factor"`
}

// DefaultConfig returns the thresholds used by the stock defense
// scenario.
func DefaultConfig() Config {
	return Config{
		MinRatings:      3,
		MaxStdDev:       0.6,
		MinExtremeShare: 0.9,
		ClipFactor:      0.5,
	}
}

// Validate checks the config for values that would make the filter
// nonsensical.
func (c Config) Validate() error {
	if c.MinRatings < 1 {
		return fmt.Errorf("defense: min_ratings must be >= 1, got %d", c.MinRatings)
	}
	if c.MaxStdDev < 0 {
		return fmt.Errorf("defense: max_std_dev must be >= 0, got %v", c.MaxStdDev)
	}
	if c.MinExtremeShare < 0 || c.MinExtremeShare > 1 {
		return fmt.Errorf("defense: min_extreme_share must be in [0, 1], got %v", c.MinExtremeShare)
	}
	if c.ClipFactor < 0 || c.ClipFactor > 1 {
		return fmt.Errorf("defense: clip_factor must be in [0, 1], got %v", c.ClipFactor)
	}
	return nil
}

// Flagged returns the users whose profiles look like injected ones:
// at least MinRatings ratings AND (stddev <= MaxStdDev OR extreme
// share >= MinExtremeShare). Sorted ascending.
func Flagged(store *ratings.Store, cfg Config) []int {
	var flagged []int
	for _, user := range store.Users() {
		if suspicious(store, user, cfg) {
			flagged = append(flagged, user)
		}
	}
	sort.Ints(flagged)
	return flagged
}

func suspicious(store *ratings.Store, user int, cfg Config) bool {
	profile := store.RatingsOf(user)
	n := len(profile)
	if n < cfg.MinRatings {
		return false
	}

	scale := store.Scale()
	var sum float64
	extreme := 0
	for _, r := range profile {
		sum += r.Score
		if r.Score == scale.Min || r.Score == scale.Max {
			extreme++
		}
	}
	mean := sum / float64(n)

	var sq float64
	for _, r := range profile {
		d := r.Score - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(n))
	extremeShare := float64(extreme) / float64(n)

	return stddev <= cfg.MaxStdDev || extremeShare >= cfg.MinExtremeShare
}

// Sanitize returns a store in which every rating of a flagged profile
// has been pulled toward the global mean by cfg.ClipFactor. Profiles
// are never deleted; clipping keeps the user population intact while
// draining the weight of coordinated extreme votes. When no profile
// is flagged the input store is returned as-is.
func Sanitize(store *ratings.Store, cfg Config) (*ratings.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	flagged := Flagged(store, cfg)
	if len(flagged) == 0 {
		return store, nil
	}

	flaggedSet := make(map[int]struct{}, len(flagged))
	for _, u := range flagged {
		flaggedSet[u] = struct{}{}
	}

	mean := store.GlobalMean()
	scale := store.Scale()
	triples := store.Triples()
	for i, r := range triples {
		if _, ok := flaggedSet[r.User]; !ok {
			continue
		}
		triples[i].Score = scale.Clamp(r.Score + cfg.ClipFactor*(mean-r.Score))
	}

	defended, err := ratings.New(triples, scale)
	if err != nil {
		return nil, fmt.Errorf("defense: build sanitized store: %w", err)
	}

	log := logging.WithComponent("defense")
	log.Info().
		Int("flagged_profiles", len(flagged)).
		Int("total_profiles", store.NumUsers()).
		Float64("clip_factor", cfg.ClipFactor).
		Msg("suspicious profiles clipped")

	return defended, nil
}
