// Shillscope - Recommender Shilling Attack and Defense Lab
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shillscope

package ratings

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadRatings(t *testing.T) {
	t.Run("valid file with timestamps", func(t *testing.T) {
		path := writeTempFile(t, "u.data",
			"1\t10\t5\t881250949\n"+
				"1\t20\t3\t881250950\n"+
				"2\t10\t4\t881250951\n")

		store, err := LoadRatings(path, DefaultScale)
		if err != nil {
			t.Fatalf("LoadRatings() error = %v", err)
		}
		if store.NumRatings() != 3 {
			t.Errorf("NumRatings() = %d, want 3", store.NumRatings())
		}
		if score, ok := store.Get(1, 20); !ok || score != 3 {
			t.Errorf("Get(1, 20) = (%v, %v), want (3, true)", score, ok)
		}
	})

	t.Run("blank lines skipped", func(t *testing.T) {
		path := writeTempFile(t, "u.data", "1\t10\t5\t0\n\n2\t10\t4\t0\n")
		store, err := LoadRatings(path, DefaultScale)
		if err != nil {
			t.Fatalf("LoadRatings() error = %v", err)
		}
		if store.NumRatings() != 2 {
			t.Errorf("NumRatings() = %d, want 2", store.NumRatings())
		}
	})

	t.Run("malformed line fails", func(t *testing.T) {
		path := writeTempFile(t, "u.data", "1\t10\n")
		if _, err := LoadRatings(path, DefaultScale); err == nil {
			t.Error("LoadRatings() = nil error, want failure for short line")
		}
	})

	t.Run("bad score fails", func(t *testing.T) {
		path := writeTempFile(t, "u.data", "1\t10\tfive\t0\n")
		if _, err := LoadRatings(path, DefaultScale); err == nil {
			t.Error("LoadRatings() = nil error, want failure for non-numeric score")
		}
	})

	t.Run("out of range score fails", func(t *testing.T) {
		path := writeTempFile(t, "u.data", "1\t10\t9\t0\n")
		if _, err := LoadRatings(path, DefaultScale); err == nil {
			t.Error("LoadRatings() = nil error, want data integrity failure")
		}
	})

	t.Run("empty file fails", func(t *testing.T) {
		path := writeTempFile(t, "u.data", "")
		if _, err := LoadRatings(path, DefaultScale); err == nil {
			t.Error("LoadRatings() = nil error, want failure for empty dataset")
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadRatings(filepath.Join(t.TempDir(), "nope.data"), DefaultScale); err == nil {
			t.Error("LoadRatings() = nil error, want failure for missing file")
		}
	})
}

func TestLoadItemTitles(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeTempFile(t, "u.item",
			"1|Toy Story (1995)|01-Jan-1995||http://example\n"+
				"2|GoldenEye (1995)|01-Jan-1995||\n")

		titles, err := LoadItemTitles(path)
		if err != nil {
			t.Fatalf("LoadItemTitles() error = %v", err)
		}
		if titles[1] != "Toy Story (1995)" {
			t.Errorf("titles[1] = %q, want %q", titles[1], "Toy Story (1995)")
		}
		if titles[2] != "GoldenEye (1995)" {
			t.Errorf("titles[2] = %q, want %q", titles[2], "GoldenEye (1995)")
		}
	})

	t.Run("latin-1 title transcoded", func(t *testing.T) {
		// 0xE9 is é in Latin-1 and invalid UTF-8 on its own.
		path := writeTempFile(t, "u.item", "3|Cyclo (Xich l\xe9) (1995)|\n")

		titles, err := LoadItemTitles(path)
		if err != nil {
			t.Fatalf("LoadItemTitles() error = %v", err)
		}
		if titles[3] != "Cyclo (Xich lé) (1995)" {
			t.Errorf("titles[3] = %q, want transcoded é", titles[3])
		}
	})

	t.Run("malformed line fails", func(t *testing.T) {
		path := writeTempFile(t, "u.item", "notanid\n")
		if _, err := LoadItemTitles(path); err == nil {
			t.Error("LoadItemTitles() = nil error, want failure")
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadItemTitles(filepath.Join(t.TempDir(), "nope.item")); err == nil {
			t.Error("LoadItemTitles() = nil error, want failure")
		}
	})
}
