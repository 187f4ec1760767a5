// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package scenario wires the clean dataset, the attack simulation and
// the defense filter into the three comparable views the lab exposes.
package scenario

import (
	"errors"
	"fmt"
)

// Scenario identifies one of the three dataset views. The set is
// closed; anything else is rejected at the parse boundary.
type Scenario string

const (
	// Baseline is the clean dataset as loaded.
	Baseline Scenario = "baseline"

	// Attack is the dataset with injected shilling profiles.
	Attack Scenario = "attack"

	// Defense is the attacked dataset after statistical clipping.
	Defense Scenario = "defense"
)

// ErrUnknownScenario is returned for any name outside the closed set.
var ErrUnknownScenario = errors.New("scenario: unknown scenario")

// All lists every scenario in presentation order.
func All() []Scenario {
	return []Scenario{Baseline, Attack, Defense}
}

// Parse validates a scenario name from an external source.
func Parse(s string) (Scenario, error) {
	switch Scenario(s) {
	case Baseline, Attack, Defense:
		return Scenario(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
	}
}

// String implements fmt.Stringer.
func (s Scenario) String() string {
	return string(s)
}
