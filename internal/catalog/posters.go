// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/shillscope/internal/logging"
	"github.com/tomtom215/shillscope/internal/metrics"
)

// PosterCache persists resolved poster URLs keyed by search title.
// A stored empty string is a valid negative entry: TMDB was asked and
// had nothing, so we do not ask again.
type PosterCache interface {
	Get(key string) (string, bool, error)
	Set(key, posterURL string) error
	Close() error
}

// PosterConfig configures the TMDB lookup client.
type PosterConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	ImageBaseURL      string        `koanf:"image_base_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	Timeout           time.Duration `koanf:"timeout"`
}

// DefaultPosterConfig returns the stock TMDB settings with no API
// key. Without a key the client resolves every title to an empty
// poster URL, keeping the lab fully usable offline.
func DefaultPosterConfig() PosterConfig {
	return PosterConfig{
		BaseURL:           "https://api.themoviedb.org/3",
		ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
		RequestsPerSecond: 4,
		Burst:             8,
		Timeout:           5 * time.Second,
	}
}

// PosterClient resolves movie titles to TMDB poster URLs. Failures
// never propagate to callers: a poster is decoration, so any error
// degrades to an empty URL. Outbound traffic is rate limited and the
// API sits behind a circuit breaker so a TMDB outage cannot stall
// request handling.
type PosterClient struct {
	cfg   PosterConfig
	http  *http.Client
	limit *rate.Limiter
	cb    *gobreaker.CircuitBreaker[string]
	cache PosterCache
	log   zerolog.Logger
}

// NewPosterClient creates a poster client over the given cache. A nil
// cache disables caching.
func NewPosterClient(cfg PosterConfig, cache PosterCache) *PosterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPosterConfig().BaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultPosterConfig().ImageBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultPosterConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultPosterConfig().Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPosterConfig().Timeout
	}

	log := logging.WithComponent("posters")

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "tmdb-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state transition")
		},
	})

	return &PosterClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		limit: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:    cb,
		cache: cache,
		log:   log,
	}
}

// Enabled reports whether the client has an API key to work with.
func (p *PosterClient) Enabled() bool {
	return p.cfg.APIKey != ""
}

// PosterURL resolves the poster for a dataset title, consulting the
// cache first. It never returns an error; anything that goes wrong
// yields "".
func (p *PosterClient) PosterURL(ctx context.Context, title string) string {
	if !p.Enabled() || title == "" {
		return ""
	}

	query := SearchTitle(title)
	if query == "" {
		return ""
	}

	if p.cache != nil {
		if cached, ok, err := p.cache.Get(query); err == nil && ok {
			metrics.PosterCacheHits.Inc()
			return cached
		}
	}
	metrics.PosterCacheMisses.Inc()

	start := time.Now()
	posterURL, err := p.cb.Execute(func() (string, error) {
		return p.fetch(ctx, query)
	})
	metrics.PosterLookupDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.PosterLookupErrors.WithLabelValues("breaker_open").Inc()
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			metrics.PosterLookupErrors.WithLabelValues("rate_limited").Inc()
		default:
			metrics.PosterLookupErrors.WithLabelValues("http").Inc()
		}
		p.log.Debug().Err(err).Str("title", query).Msg("poster lookup failed")
		return ""
	}

	// Negative results are cached too, so unknown titles cost one
	// API call per process lifetime, not one per request.
	if p.cache != nil {
		if err := p.cache.Set(query, posterURL); err != nil {
			p.log.Warn().Err(err).Str("title", query).Msg("poster cache write failed")
		}
	}
	return posterURL
}

type tmdbSearchResponse struct {
	Results []struct {
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

func (p *PosterClient) fetch(ctx context.Context, query string) (string, error) {
	if err := p.limit.Wait(ctx); err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s",
		p.cfg.BaseURL, url.QueryEscape(p.cfg.APIKey), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build tmdb request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return "", fmt.Errorf("tmdb status %d", resp.StatusCode)
	}

	var parsed tmdbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode tmdb response: %w", err)
	}

	if len(parsed.Results) == 0 || parsed.Results[0].PosterPath == "" {
		return "", nil
	}
	return p.cfg.ImageBaseURL + parsed.Results[0].PosterPath, nil
}
