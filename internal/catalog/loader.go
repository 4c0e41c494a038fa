// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

// Package catalog loads song catalogs from CSV files into the engine's
// input format. It resolves column names by header, tolerates the common
// export variants of the same dataset, and rejects rows it cannot parse
// rather than imputing values.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vibemap/vibemap/internal/logging"
	"github.com/vibemap/vibemap/internal/metrics"
	"github.com/vibemap/vibemap/internal/recommend"
)

// columnAliases maps each canonical column to the header spellings seen in
// common catalog exports. The first column present wins.
var columnAliases = map[string][]string{
	"track_id":         {"track_id", "id"},
	"track_name":       {"track_name", "name", "song_name", "title"},
	"artist":           {"artist", "artists", "artist_name"},
	"album":            {"album", "album_name"},
	"year":             {"year", "release_year"},
	"popularity":       {"popularity"},
	"valence":          {"valence"},
	"energy":           {"energy"},
	"danceability":     {"danceability"},
	"tempo":            {"tempo"},
	"acousticness":     {"acousticness"},
	"instrumentalness": {"instrumentalness"},
	"liveness":         {"liveness"},
	"speechiness":      {"speechiness"},
	"loudness":         {"loudness"},
}

// requiredColumns must resolve from the header for a load to proceed.
var requiredColumns = []string{
	"track_id", "track_name", "artist",
	"valence", "energy", "danceability", "tempo", "acousticness",
	"instrumentalness", "liveness", "speechiness", "loudness",
}

// LoadStats summarizes one catalog load.
type LoadStats struct {
	Rows     int
	Loaded   int
	Rejected int
	Elapsed  time.Duration
}

// Load reads a catalog CSV from disk.
func Load(path string) ([]recommend.Song, *LoadStats, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from service configuration
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only close

	songs, stats, err := Parse(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	logging.Info().
		Str("path", path).
		Int("rows", stats.Rows).
		Int("loaded", stats.Loaded).
		Int("rejected", stats.Rejected).
		Dur("elapsed", stats.Elapsed).
		Msg("Catalog loaded")
	return songs, stats, nil
}

// Parse reads catalog rows from CSV. Rows with unparsable values are
// rejected and counted; structural problems (missing required columns,
// no usable rows) fail the whole load.
func Parse(r io.Reader) ([]recommend.Song, *LoadStats, error) {
	start := time.Now()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable header: %v", recommend.ErrInvalidCatalog, err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	stats := &LoadStats{}
	var songs []recommend.Song
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed CSV row (bad quoting, wrong field count).
			stats.Rows++
			stats.Rejected++
			continue
		}
		stats.Rows++

		song, err := parseRow(record, cols)
		if err != nil {
			stats.Rejected++
			logging.Debug().Err(err).Int("row", stats.Rows).Msg("Catalog row rejected")
			continue
		}
		songs = append(songs, song)
		stats.Loaded++
	}
	stats.Elapsed = time.Since(start)
	metrics.RecordCatalogLoad(stats.Elapsed, stats.Loaded, stats.Rejected)

	if stats.Loaded == 0 {
		return nil, nil, fmt.Errorf("%w: no usable rows (%d rejected)", recommend.ErrInvalidCatalog, stats.Rejected)
	}
	return songs, stats, nil
}

// resolveColumns maps canonical column names to header positions.
func resolveColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				cols[canonical] = idx
				break
			}
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", recommend.ErrInvalidCatalog, missing)
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int) (recommend.Song, error) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	getFloat := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}
	getInt := func(name string) int {
		v, err := strconv.Atoi(get(name))
		if err != nil {
			return 0
		}
		return v
	}

	song := recommend.Song{
		TrackID: get("track_id"),
		Name:    get("track_name"),
		Artist:  get("artist"),
		Album:   get("album"),
		Year:    getInt("year"),
	}
	if song.TrackID == "" {
		return recommend.Song{}, errors.New("empty track_id")
	}
	song.Popularity = getInt("popularity")

	var err error
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"valence", &song.Valence},
		{"energy", &song.Energy},
		{"danceability", &song.Danceability},
		{"tempo", &song.Tempo},
		{"acousticness", &song.Acousticness},
		{"instrumentalness", &song.Instrumentalness},
		{"liveness", &song.Liveness},
		{"speechiness", &song.Speechiness},
		{"loudness", &song.Loudness},
	} {
		if *f.dst, err = getFloat(f.name); err != nil {
			return recommend.Song{}, err
		}
	}
	return song, nil
}
