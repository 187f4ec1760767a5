// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shillscope/internal/config"
)

func TestRequestIDHeader(t *testing.T) {
	rec, resp := doRequest(t, testRouter(t), http.MethodGet, "/health", "")

	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("X-Request-ID header not set")
	}
	if resp.Meta == nil || resp.Meta.RequestID != id {
		t.Errorf("Meta.RequestID = %v, want header value %q", resp.Meta, id)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec, _ := doRequest(t, testRouter(t), http.MethodGet, "/health", "")

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}
	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS = %q on plain HTTP, want unset", got)
	}
}

func TestRateLimit(t *testing.T) {
	router := NewRouter(testServer(t), config.SecurityConfig{
		RateLimitReqs:   2,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}, 5*time.Second)

	body := `{"scenario":"baseline","user_id":1}`
	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, router, http.MethodPost, "/api/recommend", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec, resp := doRequest(t, router, http.MethodPost, "/api/recommend", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after limit", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeTooManyRequests)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	router := NewRouter(testServer(t), config.SecurityConfig{
		RateLimitDisabled: true,
		CORSOrigins:       []string{"*"},
	}, 5*time.Second)

	for i := 0; i < 10; i++ {
		rec, _ := doRequest(t, router, http.MethodGet, "/api/attack", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 with limiter off", i+1, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/recommend", nil)
	req.Header.Set("Origin", "http://lab.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestStatusResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &statusResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	ww.WriteHeader(http.StatusTeapot)
	ww.WriteHeader(http.StatusOK) // later writes must not overwrite the captured code

	if ww.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want first WriteHeader %d", ww.statusCode, http.StatusTeapot)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	_, resp := doRequest(t, testRouter(t), http.MethodGet, "/nope", "")

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(raw, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := round["data"]; ok {
		t.Error("error envelope carries a data field")
	}
	if round["success"] != false {
		t.Errorf("success = %v, want false", round["success"])
	}
}
