// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// validate is the shared validator instance. It is safe for
// concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// RecommendRequest asks for a top-K list for one user under one
// scenario.
type RecommendRequest struct {
	Scenario string `json:"scenario" validate:"required"`
	UserID   int    `json:"user_id" validate:"required,min=1"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1"`
}

// CompareRequest asks for the same user's top-K list under all
// scenarios side by side.
type CompareRequest struct {
	UserID int `json:"user_id" validate:"required,min=1"`
	TopK   int `json:"top_k" validate:"omitempty,min=1"`
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

// decodeAndValidate decodes the request body into dst and runs
// struct validation. On failure it writes the error response and
// returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, FieldError{
					Field: fe.Field(),
					Rule:  fe.Tag(),
					Value: fmt.Sprintf("%v", fe.Value()),
				})
			}
			rw.ValidationError("Request validation failed", fields)
			return false
		}
		rw.BadRequest("Request validation failed")
		return false
	}

	return true
}
