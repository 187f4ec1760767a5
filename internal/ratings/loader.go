// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package ratings

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// LoadRatings reads a MovieLens-style ratings file: one rating per
// line, tab-separated as user, item, score, timestamp. The timestamp
// column is ignored. Blank lines are skipped; anything else malformed
// fails the load, since a silently truncated dataset would skew every
// scenario built on it.
func LoadRatings(path string, scale Scale) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ratings file: %w", err)
	}
	defer f.Close()

	var triples []Rating
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("ratings file %s line %d: expected at least 3 tab-separated fields, got %d", path, line, len(fields))
		}

		user, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("ratings file %s line %d: bad user id %q: %w", path, line, fields[0], err)
		}
		item, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ratings file %s line %d: bad item id %q: %w", path, line, fields[1], err)
		}
		score, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("ratings file %s line %d: bad score %q: %w", path, line, fields[2], err)
		}

		triples = append(triples, Rating{User: user, Item: item, Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ratings file %s: %w", path, err)
	}
	if len(triples) == 0 {
		return nil, fmt.Errorf("ratings file %s: no ratings found", path)
	}

	store, err := New(triples, scale)
	if err != nil {
		return nil, fmt.Errorf("ratings file %s: %w", path, err)
	}
	return store, nil
}

// LoadItemTitles reads a MovieLens-style item metadata file:
// pipe-separated, item id then title, remaining columns ignored. The
// file is Latin-1 encoded; non-ASCII title bytes are transcoded to
// UTF-8.
func LoadItemTitles(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open item file: %w", err)
	}
	defer f.Close()

	titles := make(map[int]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.SplitN(text, "|", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("item file %s line %d: expected at least 2 pipe-separated fields", path, line)
		}

		item, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("item file %s line %d: bad item id %q: %w", path, line, fields[0], err)
		}

		titles[item] = latin1ToUTF8(fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read item file %s: %w", path, err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("item file %s: no items found", path)
	}

	return titles, nil
}

// latin1ToUTF8 converts a Latin-1 byte string to valid UTF-8. Input
// that is already valid UTF-8 passes through untouched so mixed
// datasets stay readable.
func latin1ToUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}
