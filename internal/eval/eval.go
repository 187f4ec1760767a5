// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package eval measures attack effectiveness: how often and how high
// the shilled target shows up in users' recommendation lists under
// each scenario.
package eval

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/ratings"
	"github.com/tomtom215/shillscope/internal/recommend"
	"github.com/tomtom215/shillscope/internal/scenario"
)

// Summary aggregates the target's placement across a user sample for
// one scenario.
type Summary struct {
	Scenario    string  `json:"scenario"`
	Users       int     `json:"users"`
	Hits        int     `json:"hits"`
	HitRate     float64 `json:"hit_rate"`
	AvgRank     float64 `json:"avg_rank,omitempty"`
	RankedUsers int     `json:"ranked_users"`
}

// Report is the full experiment result.
type Report struct {
	TargetItem int       `json:"target_item_id"`
	TopK       int       `json:"top_k"`
	SampleSize int       `json:"sample_size"`
	Scenarios  []Summary `json:"scenarios"`
}

// RankOf returns the 1-based position of target in an ordered
// recommendation list, or false when it did not make the list.
func RankOf(items []recommend.ScoredItem, target int) (int, bool) {
	for i, it := range items {
		if it.Item == target {
			return i + 1, true
		}
	}
	return 0, false
}

// SampleUsers picks up to n users who have NOT rated the target,
// seeded and deterministic. Users who already rated the target can
// never be recommended it, so they would only dilute the measurement.
func SampleUsers(store *ratings.Store, target, n int, seed int64) []int {
	var eligible []int
	for _, u := range store.Users() {
		if _, rated := store.Get(u, target); !rated {
			eligible = append(eligible, u)
		}
	}
	if n >= len(eligible) {
		return eligible
	}

	rng := rand.New(rand.NewSource(seed))
	sample := make([]int, 0, n)
	for _, idx := range rng.Perm(len(eligible))[:n] {
		sample = append(sample, eligible[idx])
	}
	return sample
}

// Run computes Hit@K and average rank of the target for every
// scenario over a shared user sample. The sample is drawn from the
// baseline store so all scenarios are measured on the same organic
// users.
func Run(ctx context.Context, orch *scenario.Orchestrator, topK, sampleSize int, seed int64) (*Report, error) {
	base, err := orch.StoreFor(scenario.Baseline)
	if err != nil {
		return nil, err
	}

	target := orch.AttackParams().TargetItem
	users := SampleUsers(base, target, sampleSize, seed)
	if len(users) == 0 {
		return nil, fmt.Errorf("eval: no eligible users for target %d", target)
	}

	start := time.Now()
	report := &Report{
		TargetItem: target,
		TopK:       topK,
		SampleSize: len(users),
	}

	for _, s := range scenario.All() {
		sum := Summary{Scenario: s.String(), Users: len(users)}
		var rankTotal int

		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			items, err := orch.Recommend(ctx, s, u, topK)
			if err != nil {
				return nil, fmt.Errorf("eval: scenario %s user %d: %w", s, u, err)
			}
			if rank, ok := RankOf(items, target); ok {
				sum.Hits++
				rankTotal += rank
			}
		}

		sum.HitRate = float64(sum.Hits) / float64(len(users))
		sum.RankedUsers = sum.Hits
		if sum.Hits > 0 {
			sum.AvgRank = float64(rankTotal) / float64(sum.Hits)
		}
		report.Scenarios = append(report.Scenarios, sum)
	}

	log := logging.WithComponent("eval")
	log.Info().
		Int("target_item", target).
		Int("top_k", topK).
		Int("users", len(users)).
		Dur("elapsed", time.Since(start)).
		Msg("experiment complete")

	return report, nil
}
