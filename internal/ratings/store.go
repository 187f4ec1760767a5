// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package ratings provides the immutable user-item rating snapshot that
// every other component reads. A Store is never mutated after
// construction; the attack and defense transformations always build a
// new Store from the triples of an existing one, so all scenarios can
// safely share a common ancestor across concurrent requests.
package ratings

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDataIntegrity is returned when store construction is given ratings
// that violate the rating-scale invariant. The store refuses to operate
// on invalid data rather than silently clamping, since clamping would
// corrupt similarity math downstream.
var ErrDataIntegrity = errors.New("ratings: data integrity violation")

// Scale is the closed rating interval every stored score must lie in.
type Scale struct {
	Min float64
	Max float64
}

// DefaultScale is the MovieLens 1-5 star convention.
var DefaultScale = Scale{Min: 1, Max: 5}

// Contains reports whether v lies within the scale.
func (s Scale) Contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}

// Clamp forces v into the scale.
func (s Scale) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Rating is a single (user, item, score) observation.
type Rating struct {
	User  int
	Item  int
	Score float64
}

// ItemScore pairs an item with the score one user gave it.
type ItemScore struct {
	Item  int
	Score float64
}

// Store is a sparse, immutable user-item rating matrix.
//
// Accessors that return slices return the store's internal sorted
// slices; callers must treat them as read-only. Concurrent reads are
// safe without locking because nothing mutates a Store after New.
type Store struct {
	scale  Scale
	byUser map[int]map[int]float64
	byItem map[int][]int // item -> sorted users who rated it
	users  []int         // sorted
	items  []int         // sorted
	count  int
	mean   float64
}

// New builds a Store from a flat list of rating triples.
//
// Duplicate (user, item) pairs are resolved by keeping the LAST
// occurrence in the input; this mirrors appending corrections to a
// ratings log. Scores outside the scale fail with ErrDataIntegrity.
func New(triples []Rating, scale Scale) (*Store, error) {
	if scale.Min >= scale.Max {
		return nil, fmt.Errorf("%w: scale [%v, %v] is empty", ErrDataIntegrity, scale.Min, scale.Max)
	}

	byUser := make(map[int]map[int]float64)
	for _, r := range triples {
		if !scale.Contains(r.Score) {
			return nil, fmt.Errorf("%w: score %v for user %d item %d outside [%v, %v]",
				ErrDataIntegrity, r.Score, r.User, r.Item, scale.Min, scale.Max)
		}
		if byUser[r.User] == nil {
			byUser[r.User] = make(map[int]float64)
		}
		byUser[r.User][r.Item] = r.Score // last occurrence wins
	}

	itemUsers := make(map[int]map[int]struct{})
	var count int
	var sum float64
	for user, scores := range byUser {
		for item, score := range scores {
			if itemUsers[item] == nil {
				itemUsers[item] = make(map[int]struct{})
			}
			itemUsers[item][user] = struct{}{}
			count++
			sum += score
		}
	}

	users := make([]int, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Ints(users)

	items := make([]int, 0, len(itemUsers))
	byItem := make(map[int][]int, len(itemUsers))
	for item, userSet := range itemUsers {
		items = append(items, item)
		raters := make([]int, 0, len(userSet))
		for u := range userSet {
			raters = append(raters, u)
		}
		sort.Ints(raters)
		byItem[item] = raters
	}
	sort.Ints(items)

	var mean float64
	if count > 0 {
		mean = sum / float64(count)
	}

	return &Store{
		scale:  scale,
		byUser: byUser,
		byItem: byItem,
		users:  users,
		items:  items,
		count:  count,
		mean:   mean,
	}, nil
}

// Scale returns the rating scale of the store.
func (s *Store) Scale() Scale {
	return s.scale
}

// Get returns the score user gave item, and whether it exists.
func (s *Store) Get(user, item int) (float64, bool) {
	scores, ok := s.byUser[user]
	if !ok {
		return 0, false
	}
	score, ok := scores[item]
	return score, ok
}

// RatingsOf returns every (item, score) the user has rated, sorted by
// item. Returns nil for unknown users.
func (s *Store) RatingsOf(user int) []ItemScore {
	scores, ok := s.byUser[user]
	if !ok {
		return nil
	}
	out := make([]ItemScore, 0, len(scores))
	for item, score := range scores {
		out = append(out, ItemScore{Item: item, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// RatedBy returns the sorted users who rated item. Read-only.
func (s *Store) RatedBy(item int) []int {
	return s.byItem[item]
}

// HasUser reports whether the user has rated at least one item.
func (s *Store) HasUser(user int) bool {
	_, ok := s.byUser[user]
	return ok
}

// Users returns all user IDs in ascending order. Read-only.
func (s *Store) Users() []int {
	return s.users
}

// Items returns all item IDs in ascending order. Read-only.
func (s *Store) Items() []int {
	return s.items
}

// NumUsers returns the number of distinct users.
func (s *Store) NumUsers() int {
	return len(s.users)
}

// NumItems returns the number of distinct items.
func (s *Store) NumItems() int {
	return len(s.items)
}

// NumRatings returns the total number of stored ratings.
func (s *Store) NumRatings() int {
	return s.count
}

// GlobalMean returns the mean of every stored score, or 0 for an
// empty store.
func (s *Store) GlobalMean() float64 {
	return s.mean
}

// MaxUser returns the largest user ID, or 0 for an empty store.
// Transformations use this to mint identifiers disjoint from existing
// users.
func (s *Store) MaxUser() int {
	if len(s.users) == 0 {
		return 0
	}
	return s.users[len(s.users)-1]
}

// Triples returns a copy of every stored rating, ordered by user then
// item. The copy is safe for callers to extend when deriving new
// stores.
func (s *Store) Triples() []Rating {
	out := make([]Rating, 0, s.count)
	for _, u := range s.users {
		for item, score := range s.byUser[u] {
			out = append(out, Rating{User: u, Item: item, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].User != out[j].User {
			return out[i].User < out[j].User
		}
		return out[i].Item < out[j].Item
	})
	return out
}
