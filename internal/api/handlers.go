// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vibemap/vibemap/internal/catalog"
	"github.com/vibemap/vibemap/internal/logging"
	"github.com/vibemap/vibemap/internal/metrics"
	"github.com/vibemap/vibemap/internal/recommend"
	"github.com/vibemap/vibemap/internal/recommend/storage"
)

const (
	defaultCount  = 10
	defaultLimit  = 20
	maxSearchHits = 100
)

// Handler serves the recommendation API. It holds the engine plus the pieces
// needed by the admin rebuild endpoint: the catalog path to re-ingest and an
// optional snapshot store to persist the new generation.
type Handler struct {
	engine      *recommend.Engine
	store       *storage.Store
	catalogPath string
	saveOnFit   bool
	startedAt   time.Time
}

// NewHandler creates the API handler. store may be nil when snapshot
// persistence is disabled.
func NewHandler(engine *recommend.Engine, store *storage.Store, catalogPath string, saveOnFit bool) *Handler {
	return &Handler{
		engine:      engine,
		store:       store,
		catalogPath: catalogPath,
		saveOnFit:   saveOnFit,
		startedAt:   time.Now(),
	}
}

type healthResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	ModelLoaded   bool      `json:"model_loaded"`
	Generation    string    `json:"generation,omitempty"`
	BuiltAt       time.Time `json:"built_at,omitempty"`
	CatalogSize   int       `json:"catalog_size,omitempty"`
}

// Health reports service liveness and whether a model generation is loaded.
// It always returns 200 so orchestrators can distinguish "up but not ready"
// from "down" via the model_loaded field.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if gen, err := h.engine.Current(); err == nil {
		resp.ModelLoaded = true
		resp.Generation = gen.ID
		resp.BuiltAt = gen.BuiltAt
		resp.CatalogSize = gen.CatalogSize
	}

	respondSuccess(w, resp, time.Now(), resp.Generation)
}

// Moods lists the supported mood categories.
func (h *Handler) Moods(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string][]string{"moods": recommend.MoodNames()}, time.Now(), "")
}

// Tempos lists the supported tempo categories.
func (h *Handler) Tempos(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string][]string{"tempos": recommend.TempoNames()}, time.Now(), "")
}

// Methods lists the supported similarity methods.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string][]string{"methods": recommend.MethodNames()}, time.Now(), "")
}

type recommendationResponse struct {
	Mood    string                 `json:"mood,omitempty"`
	Tempo   string                 `json:"tempo,omitempty"`
	Count   int                    `json:"count"`
	Results []recommend.ScoredSong `json:"results"`
}

// RecommendMood handles GET /recommendations/mood?mood=&count=&max_per_artist=.
func (h *Handler) RecommendMood(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	mood, err := recommend.ParseMood(r.URL.Query().Get("mood"))
	if err != nil {
		mapError(w, err)
		return
	}

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	count := getIntParam(r, "count", defaultCount)
	count, fetch, maxPerArtist := diversityParams(r, count)
	results, err := rec.RecommendByMood(mood, fetch)
	if err != nil {
		metrics.RecordQuery("mood", 0, err)
		mapError(w, err)
		return
	}
	results = applyDiversity(results, count, maxPerArtist)
	metrics.RecordQuery("mood", len(results), nil)

	h.respondRecommendations(w, started, recommendationResponse{
		Mood:    mood.String(),
		Count:   len(results),
		Results: results,
	})
}

// RecommendTempo handles GET /recommendations/tempo?tempo=&count=.
func (h *Handler) RecommendTempo(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	tempo, err := recommend.ParseTempo(r.URL.Query().Get("tempo"))
	if err != nil {
		mapError(w, err)
		return
	}

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	count := getIntParam(r, "count", defaultCount)
	count, fetch, maxPerArtist := diversityParams(r, count)
	results, err := rec.RecommendByTempo(tempo, fetch)
	if err != nil {
		metrics.RecordQuery("tempo", 0, err)
		mapError(w, err)
		return
	}
	results = applyDiversity(results, count, maxPerArtist)
	metrics.RecordQuery("tempo", len(results), nil)

	h.respondRecommendations(w, started, recommendationResponse{
		Tempo:   tempo.String(),
		Count:   len(results),
		Results: results,
	})
}

// RecommendCombined handles GET /recommendations/combined?mood=&tempo=&count=.
// The result set is the intersection of the mood and tempo filters; an empty
// intersection is a valid response, not an error.
func (h *Handler) RecommendCombined(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	mood, err := recommend.ParseMood(r.URL.Query().Get("mood"))
	if err != nil {
		mapError(w, err)
		return
	}
	tempo, err := recommend.ParseTempo(r.URL.Query().Get("tempo"))
	if err != nil {
		mapError(w, err)
		return
	}

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	count := getIntParam(r, "count", defaultCount)
	count, fetch, maxPerArtist := diversityParams(r, count)
	results, err := rec.RecommendByMoodAndTempo(mood, tempo, fetch)
	if err != nil {
		metrics.RecordQuery("combined", 0, err)
		mapError(w, err)
		return
	}
	results = applyDiversity(results, count, maxPerArtist)
	metrics.RecordQuery("combined", len(results), nil)

	h.respondRecommendations(w, started, recommendationResponse{
		Mood:    mood.String(),
		Tempo:   tempo.String(),
		Count:   len(results),
		Results: results,
	})
}

// Similar handles GET /recommendations/similar?track_id=&method=&count=.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	trackID := r.URL.Query().Get("track_id")
	if trackID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "track_id is required", nil)
		return
	}

	methodName := r.URL.Query().Get("method")
	if methodName == "" {
		methodName = recommend.MethodKNN.String()
	}
	method, err := recommend.ParseMethod(methodName)
	if err != nil {
		mapError(w, err)
		return
	}

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	result, err := rec.RecommendBySong(trackID, method, getIntParam(r, "count", defaultCount))
	if err != nil {
		metrics.RecordQuery("similar", 0, err)
		mapError(w, err)
		return
	}
	metrics.RecordQuery("similar", len(result.Results), nil)

	respondSuccess(w, result, started, h.generationID())
}

type searchResponse struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []recommend.Song `json:"results"`
}

// Search handles GET /songs/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "q is required", nil)
		return
	}

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	limit := getIntParam(r, "limit", defaultLimit)
	if limit < 1 || limit > maxSearchHits {
		limit = defaultLimit
	}

	results, err := rec.Search(query, limit)
	metrics.RecordQuery("search", len(results), err)
	if err != nil {
		mapError(w, err)
		return
	}

	respondSuccess(w, searchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	}, started, h.generationID())
}

type songDetailResponse struct {
	Song         recommend.Song `json:"song"`
	ClusterID    int            `json:"cluster_id"`
	ClusterLabel string         `json:"cluster_label"`
}

// SongByID handles GET /songs/{trackID} and includes the mood cluster the
// track was assigned to.
func (h *Handler) SongByID(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	trackID := chi.URLParam(r, "trackID")

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	song, err := rec.Song(trackID)
	if err != nil {
		mapError(w, err)
		return
	}
	clusterID, label, err := rec.SongCluster(trackID)
	if err != nil {
		mapError(w, err)
		return
	}

	respondSuccess(w, songDetailResponse{
		Song:         song,
		ClusterID:    clusterID,
		ClusterLabel: label,
	}, started, h.generationID())
}

type clustersResponse struct {
	K             int                        `json:"k"`
	Silhouette    float64                    `json:"silhouette"`
	DaviesBouldin float64                    `json:"davies_bouldin"`
	Clusters      []recommend.ClusterSummary `json:"clusters"`
}

// Clusters handles GET /clusters, returning the fitted mood clusters with
// quality diagnostics.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	rec, err := h.engine.Recommender()
	if err != nil {
		mapError(w, err)
		return
	}

	summaries, err := rec.Clusters()
	if err != nil {
		mapError(w, err)
		return
	}
	silhouette, daviesBouldin, err := rec.Diagnostics()
	if err != nil {
		mapError(w, err)
		return
	}

	respondSuccess(w, clustersResponse{
		K:             len(summaries),
		Silhouette:    silhouette,
		DaviesBouldin: daviesBouldin,
		Clusters:      summaries,
	}, started, h.generationID())
}

type rebuildResponse struct {
	Generation      string `json:"generation"`
	CatalogSize     int    `json:"catalog_size"`
	RowsRejected    int    `json:"rows_rejected"`
	SnapshotVersion int    `json:"snapshot_version,omitempty"`
	ElapsedMS       int64  `json:"elapsed_ms"`
}

// Rebuild handles POST /admin/rebuild. It re-reads the catalog file, fits a
// new model generation, swaps it in atomically, and saves a snapshot when
// persistence is enabled. Queries running against the previous generation are
// unaffected.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.catalogPath == "" {
		respondError(w, http.StatusConflict, "NO_CATALOG", "no catalog path configured", nil)
		return
	}

	songs, stats, err := catalog.Load(h.catalogPath)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "CATALOG_ERROR", "catalog ingestion failed", err)
		return
	}

	if err := h.engine.Fit(songs); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "FIT_ERROR", "model fit failed", err)
		return
	}

	gen, err := h.engine.Current()
	if err != nil {
		mapError(w, err)
		return
	}

	resp := rebuildResponse{
		Generation:   gen.ID,
		CatalogSize:  gen.CatalogSize,
		RowsRejected: stats.Rejected,
		ElapsedMS:    time.Since(started).Milliseconds(),
	}

	if h.store != nil && h.saveOnFit {
		state, err := h.engine.ExportState()
		if err == nil {
			resp.SnapshotVersion, err = h.store.Save(state)
		}
		if err != nil {
			// The new generation is already live; snapshot failure only
			// affects restart recovery.
			logging.Error().Err(err).Msg("Snapshot save after rebuild failed")
		}
	}

	logging.Info().
		Str("generation", resp.Generation).
		Int("songs", resp.CatalogSize).
		Int("rejected", resp.RowsRejected).
		Int64("elapsed_ms", resp.ElapsedMS).
		Msg("Catalog rebuild complete")

	respondSuccess(w, resp, started, gen.ID)
}

// diversityParams clamps the requested count and decides how many candidates
// to fetch for a recommendation query. When max_per_artist is present and
// positive the fetch widens to the full result budget so the per-artist cap
// selects from a deep pool instead of merely shrinking an already-truncated
// list.
func diversityParams(r *http.Request, count int) (clamped, fetch, maxPerArtist int) {
	if count < 1 {
		count = 1
	} else if count > maxSearchHits {
		count = maxSearchHits
	}

	maxPerArtist = getIntParam(r, "max_per_artist", 0)
	if maxPerArtist <= 0 {
		return count, count, 0
	}
	return count, maxSearchHits, maxPerArtist
}

// applyDiversity applies the per-artist cap over the fetched pool. The cap
// falls back to skipped songs when it cannot fill the requested count, so the
// result only shrinks when the pool itself runs out.
func applyDiversity(results []recommend.ScoredSong, count, maxPerArtist int) []recommend.ScoredSong {
	if maxPerArtist <= 0 {
		if len(results) > count {
			return results[:count]
		}
		return results
	}
	return recommend.ApplyDiversity(results, count, maxPerArtist)
}

func (h *Handler) respondRecommendations(w http.ResponseWriter, started time.Time, resp recommendationResponse) {
	respondSuccess(w, resp, started, h.generationID())
}

func (h *Handler) generationID() string {
	gen, err := h.engine.Current()
	if err != nil {
		return ""
	}
	return gen.ID
}
