// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shillscope/internal/attack"
	"github.com/tomtom215/shillscope/internal/defense"
	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/metrics"
	"github.com/tomtom215/shillscope/internal/ratings"
	"github.com/tomtom215/shillscope/internal/recommend"
)

// Comparison is the three-way result for one user. Scenarios that
// could not be computed before the context expired appear in
// Unavailable instead of their list field; a returned list is always
// complete, never a truncated partial.
type Comparison struct {
	UserID      int                    `json:"user_id"`
	TopK        int                    `json:"top_k"`
	TargetItem  int                    `json:"target_item_id"`
	Baseline    []recommend.ScoredItem `json:"baseline"`
	Attack      []recommend.ScoredItem `json:"attack"`
	Defense     []recommend.ScoredItem `json:"defense"`
	Unavailable map[string]string      `json:"unavailable,omitempty"`
}

// Orchestrator owns the scenario stores and engines. The attacked and
// defended stores are pure functions of the baseline plus fixed
// parameters, so each is derived once per process and shared. The
// same recommendation service scores every scenario, keeping the
// algorithm identical across views by construction.
type Orchestrator struct {
	base   *ratings.Store
	params attack.Params
	defCfg defense.Config
	svc    *recommend.Service
	log    zerolog.Logger

	baseEng *recommend.Engine

	attackOnce sync.Once
	attackEng  *recommend.Engine
	attackErr  error

	defenseOnce sync.Once
	defenseEng  *recommend.Engine
	defenseErr  error
}

// New creates an orchestrator over the baseline store.
func New(base *ratings.Store, params attack.Params, defCfg defense.Config, svc *recommend.Service) *Orchestrator {
	metrics.StoreRatings.WithLabelValues(string(Baseline)).Set(float64(base.NumRatings()))
	return &Orchestrator{
		base:    base,
		params:  params,
		defCfg:  defCfg,
		svc:     svc,
		log:     logging.WithComponent("scenario"),
		baseEng: recommend.NewEngine(base),
	}
}

// AttackParams returns the attack configuration in effect.
func (o *Orchestrator) AttackParams() attack.Params {
	return o.params
}

// DefenseConfig returns the defense configuration in effect.
func (o *Orchestrator) DefenseConfig() defense.Config {
	return o.defCfg
}

// StoreFor returns the rating store backing a scenario, deriving it
// on first use.
func (o *Orchestrator) StoreFor(s Scenario) (*ratings.Store, error) {
	eng, err := o.engineFor(s)
	if err != nil {
		return nil, err
	}
	return eng.Store(), nil
}

func (o *Orchestrator) engineFor(s Scenario) (*recommend.Engine, error) {
	switch s {
	case Baseline:
		return o.baseEng, nil
	case Attack:
		o.attackOnce.Do(o.deriveAttack)
		return o.attackEng, o.attackErr
	case Defense:
		o.defenseOnce.Do(o.deriveDefense)
		return o.defenseEng, o.defenseErr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, s)
	}
}

func (o *Orchestrator) deriveAttack() {
	start := time.Now()
	attacked, err := attack.Inject(o.base, o.params)
	if err != nil {
		o.attackErr = err
		return
	}
	metrics.RecordStoreBuild(string(Attack), time.Since(start), attacked.NumRatings())
	o.attackEng = recommend.NewEngine(attacked)
	o.log.Info().
		Dur("elapsed", time.Since(start)).
		Int("ratings", attacked.NumRatings()).
		Msg("attack store derived")
}

func (o *Orchestrator) deriveDefense() {
	// The defense always runs against the attacked store; filtering a
	// clean dataset is the degenerate case of the same pipeline.
	attackEng, err := o.engineFor(Attack)
	if err != nil {
		o.defenseErr = fmt.Errorf("derive attack store for defense: %w", err)
		return
	}

	start := time.Now()
	defended, err := defense.Sanitize(attackEng.Store(), o.defCfg)
	if err != nil {
		o.defenseErr = err
		return
	}
	metrics.RecordStoreBuild(string(Defense), time.Since(start), defended.NumRatings())
	metrics.FlaggedProfiles.Set(float64(len(defense.Flagged(attackEng.Store(), o.defCfg))))
	o.defenseEng = recommend.NewEngine(defended)
	o.log.Info().
		Dur("elapsed", time.Since(start)).
		Int("ratings", defended.NumRatings()).
		Msg("defense store derived")
}

// Recommend computes the top-K list for one user under one scenario.
func (o *Orchestrator) Recommend(ctx context.Context, s Scenario, user, topK int) ([]recommend.ScoredItem, error) {
	start := time.Now()
	eng, err := o.engineFor(s)
	if err != nil {
		metrics.RecordScenarioCompute(string(s), time.Since(start), err)
		return nil, err
	}

	items, err := o.svc.Recommend(ctx, eng, user, topK)
	metrics.RecordScenarioCompute(string(s), time.Since(start), err)
	return items, err
}

// Compare computes all three scenarios for one user. Scenarios are
// evaluated in order; once the context expires the remaining ones are
// reported in Unavailable rather than aborting the whole comparison.
func (o *Orchestrator) Compare(ctx context.Context, user, topK int) (*Comparison, error) {
	cmp := &Comparison{
		UserID:     user,
		TopK:       topK,
		TargetItem: o.params.TargetItem,
	}

	for _, s := range All() {
		if err := ctx.Err(); err != nil {
			o.markUnavailable(cmp, s, err)
			continue
		}

		items, err := o.Recommend(ctx, s, user, topK)
		if err != nil {
			o.markUnavailable(cmp, s, err)
			continue
		}

		switch s {
		case Baseline:
			cmp.Baseline = items
		case Attack:
			cmp.Attack = items
		case Defense:
			cmp.Defense = items
		}
	}

	if len(cmp.Unavailable) == len(All()) {
		return nil, fmt.Errorf("scenario: no scenario could be computed for user %d", user)
	}
	return cmp, nil
}

func (o *Orchestrator) markUnavailable(cmp *Comparison, s Scenario, err error) {
	if cmp.Unavailable == nil {
		cmp.Unavailable = make(map[string]string)
	}
	cmp.Unavailable[string(s)] = err.Error()
	o.log.Warn().Err(err).Str("scenario", string(s)).Int("user", cmp.UserID).
		Msg("scenario unavailable")
}
