// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shillscope/internal/catalog"
	"github.com/tomtom215/shillscope/internal/config"
	"github.com/tomtom215/shillscope/internal/eval"
	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/recommend"
	"github.com/tomtom215/shillscope/internal/scenario"
)

// Server holds the handler dependencies.
type Server struct {
	orch    *scenario.Orchestrator
	catalog *catalog.Catalog
	posters *catalog.PosterClient
	rec     config.RecommendConfig
	eval    config.EvalConfig
	log     zerolog.Logger
}

// NewServer creates the API server. catalog and posters may be nil
// when the item titles file or TMDB key are absent; recommendation
// lists then carry IDs and scores only.
func NewServer(orch *scenario.Orchestrator, cat *catalog.Catalog, posters *catalog.PosterClient, rec config.RecommendConfig, evalCfg config.EvalConfig) *Server {
	return &Server{
		orch:    orch,
		catalog: cat,
		posters: posters,
		rec:     rec,
		eval:    evalCfg,
		log:     logging.WithComponent("api"),
	}
}

// RecommendedItem is a scored item decorated with catalog metadata.
type RecommendedItem struct {
	ItemID    int     `json:"item_id"`
	Score     float64 `json:"score"`
	Title     string  `json:"title,omitempty"`
	PosterURL string  `json:"poster_url,omitempty"`
}

// RecommendResponse is the payload for POST /api/recommend.
type RecommendResponse struct {
	Scenario string            `json:"scenario"`
	UserID   int               `json:"user_id"`
	TopK     int               `json:"top_k"`
	Items    []RecommendedItem `json:"items"`
}

// CompareResponse is the payload for POST /api/compare.
type CompareResponse struct {
	UserID      int               `json:"user_id"`
	TopK        int               `json:"top_k"`
	TargetItem  int               `json:"target_item_id"`
	Baseline    []RecommendedItem `json:"baseline"`
	Attack      []RecommendedItem `json:"attack"`
	Defense     []RecommendedItem `json:"defense"`
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Users      int    `json:"users"`
	Items      int    `json:"items"`
	Ratings    int    `json:"ratings"`
	TargetItem int    `json:"target_item_id"`
}

// ExperimentSetup is the payload for GET /api/attack.
type ExperimentSetup struct {
	Attack  AttackInfo  `json:"attack"`
	Defense DefenseInfo `json:"defense"`
}

// AttackInfo describes the injected attack.
type AttackInfo struct {
	TargetItem  int    `json:"target_item_id"`
	TargetTitle string `json:"target_title,omitempty"`
	Profiles    int    `json:"profiles"`
	Fillers     int    `json:"fillers"`
	Seed        int64  `json:"seed"`
}

// DefenseInfo describes the statistical filter thresholds.
type DefenseInfo struct {
	MinRatings      int     `json:"min_ratings"`
	MaxStdDev       float64 `json:"max_std_dev"`
	MinExtremeShare float64 `json:"min_extreme_share"`
	ClipFactor      float64 `json:"clip_factor"`
}

// HandleHealth reports service health and baseline dataset stats.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	store, err := s.orch.StoreFor(scenario.Baseline)
	if err != nil {
		rw.ServiceUnavailable("Baseline dataset unavailable")
		return
	}

	rw.Success(HealthResponse{
		Status:     "healthy",
		Users:      store.NumUsers(),
		Items:      store.NumItems(),
		Ratings:    store.NumRatings(),
		TargetItem: s.orch.AttackParams().TargetItem,
	})
}

// HandleRecommend serves a top-K list for one user under one scenario.
func (s *Server) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rw := NewResponseWriter(w, r)

	scen, err := scenario.Parse(req.Scenario)
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeUnknownScenario, err.Error())
		return
	}

	topK, ok := s.clampTopK(rw, req.TopK)
	if !ok {
		return
	}

	items, err := s.orch.Recommend(r.Context(), scen, req.UserID, topK)
	if err != nil {
		s.log.Error().Err(err).Str("scenario", string(scen)).Int("user", req.UserID).
			Msg("recommendation failed")
		rw.InternalError("Failed to compute recommendations")
		return
	}

	rw.Success(RecommendResponse{
		Scenario: string(scen),
		UserID:   req.UserID,
		TopK:     topK,
		Items:    s.decorate(r, items),
	})
}

// HandleCompare serves the same user's lists under all scenarios.
func (s *Server) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rw := NewResponseWriter(w, r)

	topK, ok := s.clampTopK(rw, req.TopK)
	if !ok {
		return
	}

	cmp, err := s.orch.Compare(r.Context(), req.UserID, topK)
	if err != nil {
		s.log.Error().Err(err).Int("user", req.UserID).Msg("comparison failed")
		rw.InternalError("Failed to compute scenario comparison")
		return
	}

	rw.Success(CompareResponse{
		UserID:      cmp.UserID,
		TopK:        cmp.TopK,
		TargetItem:  cmp.TargetItem,
		Baseline:    s.decorate(r, cmp.Baseline),
		Attack:      s.decorate(r, cmp.Attack),
		Defense:     s.decorate(r, cmp.Defense),
		Unavailable: cmp.Unavailable,
	})
}

// HandleExperiment runs the Hit@K experiment across a user sample.
// Sample size and K come from query parameters, defaulting to the
// configured experiment bounds.
func (s *Server) HandleExperiment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	topK, ok := s.queryInt(rw, r, "top_k", s.rec.DefaultTopK)
	if !ok {
		return
	}
	if topK, ok = s.clampTopK(rw, topK); !ok {
		return
	}
	sample, ok := s.queryInt(rw, r, "sample", s.eval.SampleSize)
	if !ok {
		return
	}
	if sample < 1 {
		rw.BadRequest("sample must be >= 1")
		return
	}

	report, err := eval.Run(r.Context(), s.orch, topK, sample, s.eval.Seed)
	if err != nil {
		s.log.Error().Err(err).Msg("experiment failed")
		rw.InternalError("Failed to run experiment")
		return
	}
	rw.Success(report)
}

// HandleAttackInfo describes the configured attack and defense.
func (s *Server) HandleAttackInfo(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	params := s.orch.AttackParams()
	defCfg := s.orch.DefenseConfig()

	info := ExperimentSetup{
		Attack: AttackInfo{
			TargetItem: params.TargetItem,
			Profiles:   params.Profiles,
			Fillers:    params.Fillers,
			Seed:       params.Seed,
		},
		Defense: DefenseInfo{
			MinRatings:      defCfg.MinRatings,
			MaxStdDev:       defCfg.MaxStdDev,
			MinExtremeShare: defCfg.MinExtremeShare,
			ClipFactor:      defCfg.ClipFactor,
		},
	}
	if s.catalog != nil {
		if title, ok := s.catalog.Title(params.TargetItem); ok {
			info.Attack.TargetTitle = title
		}
	}

	rw.Success(info)
}

// clampTopK applies the default for zero and rejects values above the
// configured maximum.
func (s *Server) clampTopK(rw *ResponseWriter, topK int) (int, bool) {
	if topK == 0 {
		return s.rec.DefaultTopK, true
	}
	if topK < 1 || topK > s.rec.MaxTopK {
		rw.BadRequest("top_k must be between 1 and " + strconv.Itoa(s.rec.MaxTopK))
		return 0, false
	}
	return topK, true
}

func (s *Server) queryInt(rw *ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		rw.BadRequest(name + " must be an integer")
		return 0, false
	}
	return v, true
}

// decorate attaches catalog titles and poster URLs to a scored list.
func (s *Server) decorate(r *http.Request, items []recommend.ScoredItem) []RecommendedItem {
	out := make([]RecommendedItem, 0, len(items))
	for _, it := range items {
		rec := RecommendedItem{ItemID: it.Item, Score: it.Score}
		if s.catalog != nil {
			if title, ok := s.catalog.Title(it.Item); ok {
				rec.Title = title
				if s.posters != nil && s.posters.Enabled() {
					rec.PosterURL = s.posters.PosterURL(r.Context(), title)
				}
			}
		}
		out = append(out, rec)
	}
	return out
}
