// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import (
	"fmt"
	"sort"
	"strings"
)

// Count bounds applied to every query, regardless of upstream validation.
const (
	minCount = 1
	maxCount = 100
)

// SimilarResult is the output of a similarity query.
type SimilarResult struct {
	Seed            Song             `json:"seed"`
	Method          SimilarityMethod `json:"-"`
	MethodName      string           `json:"method"`
	Results         []ScoredSong     `json:"results"`
	ClampedToBudget bool             `json:"clamped_to_budget,omitempty"`
}

// ClusterSummary describes one fitted mood cluster for inspection.
type ClusterSummary struct {
	ID       int       `json:"id"`
	Label    string    `json:"label"`
	Size     int       `json:"size"`
	Centroid []float64 `json:"centroid"`
}

// SongRecommender is the fitted query surface: category-filtered and
// similarity-based recommendations over an immutable catalog. The zero
// value is unbuilt; every query on it fails with ErrModelNotLoaded.
// A built recommender is never mutated and is safe for concurrent use.
type SongRecommender struct {
	built bool

	cfg        *Config
	songs      []Song
	matrix     [][]float64
	norms      []float64
	rowByID    map[string]int
	normalizer *FeatureNormalizer
	clusterer  *MoodClusterer
	index      *knnIndex
	ideals     [numMoods][numFeatures]float64
}

// newRecommender assembles the fitted query surface from its components.
// The clusterer must have been fitted on the catalog in the same row order.
func newRecommender(songs []Song, normalizer *FeatureNormalizer, clusterer *MoodClusterer, cfg *Config) (*SongRecommender, error) {
	matrix := make([][]float64, len(songs))
	rowByID := make(map[string]int, len(songs))
	for i := range songs {
		vec, err := normalizer.Transform(&songs[i])
		if err != nil {
			return nil, err
		}
		matrix[i] = vec[:]
		if prev, dup := rowByID[songs[i].TrackID]; dup {
			return nil, fmt.Errorf("%w: duplicate track_id %q (rows %d and %d)",
				ErrInvalidCatalog, songs[i].TrackID, prev, i)
		}
		rowByID[songs[i].TrackID] = i
	}

	r := &SongRecommender{
		built:      true,
		cfg:        cfg,
		songs:      songs,
		matrix:     matrix,
		norms:      make([]float64, len(matrix)),
		rowByID:    rowByID,
		normalizer: normalizer,
		clusterer:  clusterer,
		index:      buildKNNIndex(matrix, songs, cfg.NeighborBudget),
	}
	for i, row := range matrix {
		r.norms[i] = vectorNorm(row)
	}

	rawMeans, err := normalizer.RawMeans()
	if err != nil {
		return nil, err
	}
	for m := Mood(0); m < numMoods; m++ {
		ideal, err := normalizer.TransformValues(idealRawPoint(m, rawMeans))
		if err != nil {
			return nil, err
		}
		r.ideals[m] = ideal
	}
	return r, nil
}

// RecommendByMood returns up to count songs matching the mood's feature
// rule, nearest to the mood's ideal point first. A valid mood with no
// matching songs yields an empty, non-error result.
func (r *SongRecommender) RecommendByMood(mood Mood, count int) ([]ScoredSong, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	if !mood.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMood, int(mood))
	}
	count = clampCount(count)

	return r.rankByIdeal(mood, count, func(s *Song) bool {
		return matchesMood(s, mood)
	}), nil
}

// RecommendByTempo returns up to count songs in the tempo bucket, most
// popular first.
func (r *SongRecommender) RecommendByTempo(tempo TempoCategory, count int) ([]ScoredSong, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	if !tempo.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTempo, int(tempo))
	}
	count = clampCount(count)

	var out []ScoredSong
	for i := range r.songs {
		if !tempo.matches(r.songs[i].Tempo) {
			continue
		}
		out = append(out, ScoredSong{Song: r.songs[i], Score: popularityScore(r.songs[i].Popularity)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Song.Popularity != out[b].Song.Popularity {
			return out[a].Song.Popularity > out[b].Song.Popularity
		}
		return out[a].Song.TrackID < out[b].Song.TrackID
	})
	return truncate(out, count), nil
}

// RecommendByMoodAndTempo intersects both filters and ranks by the mood's
// ideal point. An empty intersection is a valid empty result.
func (r *SongRecommender) RecommendByMoodAndTempo(mood Mood, tempo TempoCategory, count int) ([]ScoredSong, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	if !mood.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMood, int(mood))
	}
	if !tempo.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTempo, int(tempo))
	}
	count = clampCount(count)

	return r.rankByIdeal(mood, count, func(s *Song) bool {
		return matchesMood(s, mood) && tempo.matches(s.Tempo)
	}), nil
}

// rankByIdeal filters the catalog and orders matches by ascending distance
// to the mood's ideal point in normalized space. Ties break by descending
// popularity, then ascending track id.
func (r *SongRecommender) rankByIdeal(mood Mood, count int, match func(*Song) bool) []ScoredSong {
	ideal := r.ideals[mood]

	type ranked struct {
		row  int
		dist float64
	}
	var matches []ranked
	for i := range r.songs {
		if !match(&r.songs[i]) {
			continue
		}
		matches = append(matches, ranked{row: i, dist: euclidean(r.matrix[i], ideal[:])})
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].dist != matches[b].dist {
			return matches[a].dist < matches[b].dist
		}
		sa, sb := &r.songs[matches[a].row], &r.songs[matches[b].row]
		if sa.Popularity != sb.Popularity {
			return sa.Popularity > sb.Popularity
		}
		return sa.TrackID < sb.TrackID
	})

	out := make([]ScoredSong, 0, min(count, len(matches)))
	for _, m := range matches {
		if len(out) == count {
			break
		}
		out = append(out, ScoredSong{Song: r.songs[m.row], Score: euclideanSimilarity(m.dist)})
	}
	return out
}

// RecommendBySong returns up to count songs most similar to the seed under
// the chosen method. The seed itself is never included. With MethodKNN a
// count above the index budget is clamped and flagged in the result.
func (r *SongRecommender) RecommendBySong(trackID string, method SimilarityMethod, count int) (*SimilarResult, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	if !method.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMethod, int(method))
	}
	count = clampCount(count)

	row, ok := r.rowByID[trackID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSongID, trackID)
	}

	result := &SimilarResult{
		Seed:       r.songs[row],
		Method:     method,
		MethodName: method.String(),
	}

	if method == MethodKNN {
		neighbors, clamped := r.index.query(row, count)
		result.ClampedToBudget = clamped
		result.Results = make([]ScoredSong, 0, len(neighbors))
		for _, n := range neighbors {
			result.Results = append(result.Results, ScoredSong{Song: r.songs[n.row], Score: n.sim})
		}
		return result, nil
	}

	scored := make([]ScoredSong, 0, len(r.songs)-1)
	for i := range r.songs {
		if i == row {
			continue
		}
		var sim float64
		if method == MethodCosine {
			sim = mapCosine(cosine(r.matrix[row], r.matrix[i], r.norms[row], r.norms[i]))
		} else {
			sim = euclideanSimilarity(euclidean(r.matrix[row], r.matrix[i]))
		}
		scored = append(scored, ScoredSong{Song: r.songs[i], Score: sim})
	}
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Song.TrackID < scored[b].Song.TrackID
	})
	result.Results = truncate(scored, count)
	return result, nil
}

// HybridScore combines seed similarity with mood affinity for a candidate.
// Weights must be non-negative and sum to 1.
func (r *SongRecommender) HybridScore(candidateID, seedID string, mood Mood, similarityWeight, moodWeight float64) (float64, error) {
	if !r.built {
		return 0, ErrModelNotLoaded
	}
	if err := validateWeights(similarityWeight, moodWeight); err != nil {
		return 0, err
	}
	if !mood.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMood, int(mood))
	}
	cRow, ok := r.rowByID[candidateID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSongID, candidateID)
	}
	sRow, ok := r.rowByID[seedID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSongID, seedID)
	}

	similarity := mapCosine(cosine(r.matrix[cRow], r.matrix[sRow], r.norms[cRow], r.norms[sRow]))
	moodMatch := euclideanSimilarity(euclidean(r.matrix[cRow], r.ideals[mood][:]))
	return similarityWeight*similarity + moodWeight*moodMatch, nil
}

// ApplyDiversity caps same-artist repetition in a ranked list. Pass one
// accepts candidates in rank order while each artist stays under the cap;
// pass two refills remaining slots from the skipped candidates, still in
// rank order, ignoring the cap.
func ApplyDiversity(ranked []ScoredSong, count, maxPerArtist int) []ScoredSong {
	if count < 1 || maxPerArtist < 1 {
		return nil
	}

	perArtist := make(map[string]int)
	accepted := make([]ScoredSong, 0, min(count, len(ranked)))
	var skipped []ScoredSong
	for _, c := range ranked {
		if len(accepted) == count {
			break
		}
		if perArtist[c.Song.Artist] >= maxPerArtist {
			skipped = append(skipped, c)
			continue
		}
		perArtist[c.Song.Artist]++
		accepted = append(accepted, c)
	}
	for _, c := range skipped {
		if len(accepted) == count {
			break
		}
		accepted = append(accepted, c)
	}
	return accepted
}

// Song looks up one catalog entry by track id.
func (r *SongRecommender) Song(trackID string) (Song, error) {
	if !r.built {
		return Song{}, ErrModelNotLoaded
	}
	row, ok := r.rowByID[trackID]
	if !ok {
		return Song{}, fmt.Errorf("%w: %q", ErrUnknownSongID, trackID)
	}
	return r.songs[row], nil
}

// SongCluster returns the fitted cluster id and label for a catalog song.
func (r *SongRecommender) SongCluster(trackID string) (int, string, error) {
	if !r.built {
		return 0, "", ErrModelNotLoaded
	}
	row, ok := r.rowByID[trackID]
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownSongID, trackID)
	}
	model, err := r.clusterer.Model()
	if err != nil {
		return 0, "", err
	}
	ci := model.Assignment[row]
	return ci, model.Labels[ci], nil
}

// Search matches query case-insensitively against song and artist names,
// most popular first.
func (r *SongRecommender) Search(query string, limit int) ([]Song, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	limit = clampCount(limit)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var out []Song
	for i := range r.songs {
		s := &r.songs[i]
		if strings.Contains(strings.ToLower(s.Name), query) ||
			strings.Contains(strings.ToLower(s.Artist), query) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Popularity != out[b].Popularity {
			return out[a].Popularity > out[b].Popularity
		}
		return out[a].TrackID < out[b].TrackID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Clusters summarizes the fitted mood clusters.
func (r *SongRecommender) Clusters() ([]ClusterSummary, error) {
	if !r.built {
		return nil, ErrModelNotLoaded
	}
	model, err := r.clusterer.Model()
	if err != nil {
		return nil, err
	}
	out := make([]ClusterSummary, model.K)
	for ci := 0; ci < model.K; ci++ {
		out[ci] = ClusterSummary{
			ID:       ci,
			Label:    model.Labels[ci],
			Size:     model.Sizes[ci],
			Centroid: model.Centroids[ci],
		}
	}
	return out, nil
}

// Size returns the catalog size of the fitted model.
func (r *SongRecommender) Size() int {
	return len(r.songs)
}

// Diagnostics returns the fitted clustering quality metrics.
func (r *SongRecommender) Diagnostics() (silhouette, daviesBouldin float64, err error) {
	if !r.built {
		return 0, 0, ErrModelNotLoaded
	}
	model, err := r.clusterer.Model()
	if err != nil {
		return 0, 0, err
	}
	return model.Silhouette, model.DaviesBouldin, nil
}

func clampCount(count int) int {
	if count < minCount {
		return minCount
	}
	if count > maxCount {
		return maxCount
	}
	return count
}

func popularityScore(popularity int) float64 {
	if popularity < 0 {
		return 0
	}
	if popularity > 100 {
		return 1
	}
	return float64(popularity) / 100
}

func truncate(songs []ScoredSong, count int) []ScoredSong {
	if len(songs) > count {
		return songs[:count]
	}
	return songs
}
