// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package eval

import (
	"context"
	"testing"

	"github.com/tomtom215/shillscope/internal/attack"
	"github.com/tomtom215/shillscope/internal/defense"
	"github.com/tomtom215/shillscope/internal/ratings"
	"github.com/tomtom215/shillscope/internal/recommend"
	"github.com/tomtom215/shillscope/internal/scenario"
)

func TestRankOf(t *testing.T) {
	items := []recommend.ScoredItem{
		{Item: 7, Score: 4.8},
		{Item: 3, Score: 4.2},
		{Item: 9, Score: 3.9},
	}

	tests := []struct {
		name     string
		target   int
		wantRank int
		wantOK   bool
	}{
		{"first", 7, 1, true},
		{"middle", 3, 2, true},
		{"last", 9, 3, true},
		{"absent", 42, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, ok := RankOf(items, tt.target)
			if rank != tt.wantRank || ok != tt.wantOK {
				t.Errorf("RankOf(%d) = (%d, %v), want (%d, %v)", tt.target, rank, ok, tt.wantRank, tt.wantOK)
			}
		})
	}

	t.Run("empty list", func(t *testing.T) {
		if _, ok := RankOf(nil, 7); ok {
			t.Error("RankOf(nil) = ok, want not found")
		}
	})
}

func labStore(t *testing.T) *ratings.Store {
	t.Helper()
	store, err := ratings.New([]ratings.Rating{
		{User: 1, Item: 1, Score: 5}, {User: 1, Item: 2, Score: 4}, {User: 1, Item: 3, Score: 3},
		{User: 2, Item: 1, Score: 4}, {User: 2, Item: 4, Score: 5}, {User: 2, Item: 5, Score: 3},
		{User: 3, Item: 2, Score: 5}, {User: 3, Item: 5, Score: 4}, {User: 3, Item: 6, Score: 3},
		{User: 4, Item: 3, Score: 4}, {User: 4, Item: 4, Score: 4}, {User: 4, Item: 6, Score: 2},
	}, ratings.DefaultScale)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return store
}

func TestSampleUsers(t *testing.T) {
	store := labStore(t)

	t.Run("excludes raters of the target", func(t *testing.T) {
		// Users 3 and 4 rated item 6.
		got := SampleUsers(store, 6, 10, 1)
		if len(got) != 2 {
			t.Fatalf("SampleUsers() = %v, want users 1 and 2", got)
		}
		for _, u := range got {
			if u == 3 || u == 4 {
				t.Errorf("sampled user %d already rated the target", u)
			}
		}
	})

	t.Run("respects the size cap", func(t *testing.T) {
		if got := SampleUsers(store, 6, 1, 1); len(got) != 1 {
			t.Errorf("SampleUsers(n=1) = %v, want one user", got)
		}
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		a := SampleUsers(store, 6, 1, 9)
		b := SampleUsers(store, 6, 1, 9)
		if len(a) != len(b) || a[0] != b[0] {
			t.Errorf("SampleUsers not deterministic: %v vs %v", a, b)
		}
	})
}

func TestRun(t *testing.T) {
	orch := scenario.New(
		labStore(t),
		attack.Params{TargetItem: 6, Profiles: 5, Fillers: 5, Seed: 42},
		defense.DefaultConfig(),
		recommend.NewService(2),
	)

	report, err := Run(context.Background(), orch, 1, 10, 42)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.TargetItem != 6 || report.TopK != 1 {
		t.Errorf("report header = (%d, %d), want (6, 1)", report.TargetItem, report.TopK)
	}
	if len(report.Scenarios) != 3 {
		t.Fatalf("scenarios = %d, want 3", len(report.Scenarios))
	}

	byName := make(map[string]Summary)
	for _, s := range report.Scenarios {
		byName[s.Scenario] = s
		if s.HitRate < 0 || s.HitRate > 1 {
			t.Errorf("%s hit rate %v outside [0, 1]", s.Scenario, s.HitRate)
		}
		if s.Hits > s.Users {
			t.Errorf("%s hits %d exceed users %d", s.Scenario, s.Hits, s.Users)
		}
	}

	// The push attack must not lower Hit@1 for the target, and with
	// this fixture it strictly raises it.
	if byName["attack"].HitRate < byName["baseline"].HitRate {
		t.Errorf("attack hit rate %v below baseline %v",
			byName["attack"].HitRate, byName["baseline"].HitRate)
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Run(ctx, orch, 1, 10, 42); err == nil {
			t.Error("Run(cancelled) = nil error, want context error")
		}
	})
}
