// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package attack

import (
	"math"
	"testing"

	"github.com/tomtom215/shillscope/internal/ratings"
	"github.com/tomtom215/shillscope/internal/recommend"
)

func fixtureStore(t *testing.T) *ratings.Store {
	t.Helper()
	store, err := ratings.New([]ratings.Rating{
		{User: 1, Item: 1, Score: 4}, {User: 1, Item: 2, Score: 3}, {User: 1, Item: 3, Score: 5},
		{User: 2, Item: 1, Score: 3}, {User: 2, Item: 4, Score: 4}, {User: 2, Item: 5, Score: 2},
		{User: 3, Item: 2, Score: 4}, {User: 3, Item: 5, Score: 3}, {User: 3, Item: 6, Score: 2},
		{User: 4, Item: 3, Score: 3}, {User: 4, Item: 4, Score: 5}, {User: 4, Item: 6, Score: 2},
	}, ratings.DefaultScale)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return store
}

func TestInject(t *testing.T) {
	params := Params{TargetItem: 6, Profiles: 3, Fillers: 2, Seed: 42}

	t.Run("fake users get fresh ids above max", func(t *testing.T) {
		store := fixtureStore(t)
		attacked, err := Inject(store, params)
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}

		if attacked.NumUsers() != store.NumUsers()+params.Profiles {
			t.Errorf("NumUsers() = %d, want %d", attacked.NumUsers(), store.NumUsers()+params.Profiles)
		}
		for i := 0; i < params.Profiles; i++ {
			if !attacked.HasUser(store.MaxUser() + 1 + i) {
				t.Errorf("missing fake user %d", store.MaxUser()+1+i)
			}
		}
	})

	t.Run("profile shape", func(t *testing.T) {
		store := fixtureStore(t)
		attacked, err := Inject(store, params)
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}

		fillerScore := math.Round(store.GlobalMean())
		for i := 0; i < params.Profiles; i++ {
			fake := store.MaxUser() + 1 + i
			profile := attacked.RatingsOf(fake)
			if len(profile) != params.Fillers+1 {
				t.Fatalf("fake user %d has %d ratings, want %d", fake, len(profile), params.Fillers+1)
			}

			seen := make(map[int]struct{})
			for _, r := range profile {
				if _, dup := seen[r.Item]; dup {
					t.Errorf("fake user %d rated item %d twice", fake, r.Item)
				}
				seen[r.Item] = struct{}{}

				switch r.Item {
				case params.TargetItem:
					if r.Score != ratings.DefaultScale.Max {
						t.Errorf("target score = %v, want %v", r.Score, ratings.DefaultScale.Max)
					}
				default:
					if r.Score != fillerScore {
						t.Errorf("filler score for item %d = %v, want %v", r.Item, r.Score, fillerScore)
					}
					if len(store.RatedBy(r.Item)) == 0 {
						t.Errorf("filler item %d does not exist in the original store", r.Item)
					}
				}
			}
			if _, ok := seen[params.TargetItem]; !ok {
				t.Errorf("fake user %d never rated the target", fake)
			}
		}
	})

	t.Run("input store untouched", func(t *testing.T) {
		store := fixtureStore(t)
		before := store.NumRatings()
		if _, err := Inject(store, params); err != nil {
			t.Fatalf("Inject() error = %v", err)
		}
		if store.NumRatings() != before {
			t.Errorf("original store mutated: %d ratings, want %d", store.NumRatings(), before)
		}
		if store.HasUser(store.MaxUser() + 1) {
			t.Error("fake user leaked into the original store")
		}
	})

	t.Run("same seed reproduces the attack", func(t *testing.T) {
		a, err := Inject(fixtureStore(t), params)
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}
		b, err := Inject(fixtureStore(t), params)
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}

		ta, tb := a.Triples(), b.Triples()
		if len(ta) != len(tb) {
			t.Fatalf("lengths differ: %d vs %d", len(ta), len(tb))
		}
		for i := range ta {
			if ta[i] != tb[i] {
				t.Fatalf("triple %d differs: %v vs %v", i, ta[i], tb[i])
			}
		}
	})

	t.Run("zero profiles is a no-op", func(t *testing.T) {
		store := fixtureStore(t)
		got, err := Inject(store, Params{TargetItem: 6, Profiles: 0, Fillers: 2, Seed: 1})
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}
		if got != store {
			t.Error("zero-profile attack should return the input store")
		}
	})

	t.Run("zero fillers is a no-op", func(t *testing.T) {
		store := fixtureStore(t)
		got, err := Inject(store, Params{TargetItem: 6, Profiles: 3, Fillers: 0, Seed: 1})
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}
		if got != store {
			t.Error("zero-filler attack should return the input store")
		}
	})

	t.Run("unknown target fails", func(t *testing.T) {
		if _, err := Inject(fixtureStore(t), Params{TargetItem: 999, Profiles: 3, Fillers: 2, Seed: 1}); err == nil {
			t.Error("Inject(unknown target) = nil error, want failure")
		}
	})

	t.Run("fillers capped at available items", func(t *testing.T) {
		attacked, err := Inject(fixtureStore(t), Params{TargetItem: 6, Profiles: 1, Fillers: 100, Seed: 1})
		if err != nil {
			t.Fatalf("Inject() error = %v", err)
		}
		fake := fixtureStore(t).MaxUser() + 1
		// 5 non-target items exist, plus the target rating itself.
		if got := len(attacked.RatingsOf(fake)); got != 6 {
			t.Errorf("fake profile size = %d, want 6", got)
		}
	})
}

func TestAttackRaisesTargetPrediction(t *testing.T) {
	store := fixtureStore(t)
	target := 6

	baseline, okBefore := recommend.NewEngine(store).Predict(1, target)

	// Full-coverage fillers guarantee overlap with the victim profile.
	attacked, err := Inject(store, Params{TargetItem: target, Profiles: 5, Fillers: 5, Seed: 42})
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	shilled, okAfter := recommend.NewEngine(attacked).Predict(1, target)
	if !okAfter {
		t.Fatal("no prediction for target after attack")
	}

	if okBefore && shilled <= baseline {
		t.Errorf("attack did not raise target prediction: before %v, after %v", baseline, shilled)
	}
}

func TestPickTarget(t *testing.T) {
	t.Run("picks among sufficiently rated items", func(t *testing.T) {
		store := fixtureStore(t)
		got, err := PickTarget(store, 2, 42)
		if err != nil {
			t.Fatalf("PickTarget() error = %v", err)
		}
		if n := len(store.RatedBy(got)); n < 2 {
			t.Errorf("PickTarget() = item %d with %d ratings, want >= 2", got, n)
		}
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		store := fixtureStore(t)
		a, err := PickTarget(store, 2, 7)
		if err != nil {
			t.Fatalf("PickTarget() error = %v", err)
		}
		b, err := PickTarget(store, 2, 7)
		if err != nil {
			t.Fatalf("PickTarget() error = %v", err)
		}
		if a != b {
			t.Errorf("PickTarget() not deterministic: %d vs %d", a, b)
		}
	})

	t.Run("falls back to most rated item", func(t *testing.T) {
		store := fixtureStore(t)
		got, err := PickTarget(store, 1000, 1)
		if err != nil {
			t.Fatalf("PickTarget() error = %v", err)
		}
		best := 0
		for _, item := range store.Items() {
			if len(store.RatedBy(item)) > len(store.RatedBy(best)) {
				best = item
			}
		}
		if len(store.RatedBy(got)) != len(store.RatedBy(best)) {
			t.Errorf("fallback picked item %d with %d ratings, want the most rated", got, len(store.RatedBy(got)))
		}
	})

	t.Run("empty store fails", func(t *testing.T) {
		empty, err := ratings.New(nil, ratings.DefaultScale)
		if err != nil {
			t.Fatalf("New(nil) error = %v", err)
		}
		if _, err := PickTarget(empty, 1, 1); err == nil {
			t.Error("PickTarget(empty) = nil error, want failure")
		}
	})
}
