// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

// Package catalog maps item IDs to human-readable movie metadata:
// titles from the dataset and poster artwork resolved through TMDB.
package catalog

import (
	"regexp"
	"strings"
)

// Catalog is an immutable item-id to title lookup.
type Catalog struct {
	titles map[int]string
}

// New creates a catalog from a title map. The map is copied; later
// mutation of the argument does not affect the catalog.
func New(titles map[int]string) *Catalog {
	own := make(map[int]string, len(titles))
	for id, title := range titles {
		own[id] = title
	}
	return &Catalog{titles: own}
}

// Title returns the display title for an item.
func (c *Catalog) Title(item int) (string, bool) {
	t, ok := c.titles[item]
	return t, ok
}

// Size returns the number of catalogued items.
func (c *Catalog) Size() int {
	return len(c.titles)
}

// yearSuffix matches the MovieLens "(1995)" release-year suffix,
// including multi-part forms like "(1998/I)".
var yearSuffix = regexp.MustCompile(`\s*\(\d{4}(/[IVX]+)?\)\s*$`)

// SearchTitle strips dataset decorations from a title so it can be
// used as an external search query: "Toy Story (1995)" -> "Toy Story".
func SearchTitle(title string) string {
	return strings.TrimSpace(yearSuffix.ReplaceAllString(title, ""))
}
