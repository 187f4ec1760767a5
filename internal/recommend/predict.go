// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package recommend

// Predict estimates the score user would give item as the weighted
// average of the ratings from every user with nonzero similarity who
// rated the item:
//
//	score(u, i) = sum_v sim(u, v) * r(v, i) / sum_v |sim(u, v)|
//
// Every rater of the item participates; there is no neighbour-count
// cutoff. The boolean result is false when no prediction exists, i.e.
// nobody rated the item or every rater has zero similarity to the
// user. A false result is a distinct outcome from a low score and
// callers must not conflate the two.
func (e *Engine) Predict(user, item int) (float64, bool) {
	raters := e.store.RatedBy(item)
	if len(raters) == 0 {
		return 0, false
	}

	var num, den float64
	for _, v := range raters {
		if v == user {
			continue
		}
		sim := e.Similarity(user, v)
		if sim == 0 {
			continue
		}
		score, ok := e.store.Get(v, item)
		if !ok {
			continue
		}
		num += sim * score
		den += abs(sim)
	}

	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
