// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import "fmt"

// Feature indices in canonical order. Vector5 (clustering) is the first five
// columns of Vector9 (similarity); tempo and loudness enter both vectors
// min-max scaled before z-scoring.
const (
	featValence = iota
	featEnergy
	featDanceability
	featTempo
	featAcousticness
	featInstrumentalness
	featLiveness
	featSpeechiness
	featLoudness

	numFeatures     = 9
	numMoodFeatures = 5
)

// featureNames maps feature indices to their catalog column names.
var featureNames = [numFeatures]string{
	"valence", "energy", "danceability", "tempo", "acousticness",
	"instrumentalness", "liveness", "speechiness", "loudness",
}

// Song is one immutable catalog row. Raw feature values stay in their
// original units; the normalizer derives vectors from them at fit time.
type Song struct {
	TrackID    string `json:"track_id"`
	Name       string `json:"track_name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	Year       int    `json:"year,omitempty"`
	Popularity int    `json:"popularity"`

	Valence          float64 `json:"valence"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Loudness         float64 `json:"loudness"`
}

// rawFeatures returns the song's features in canonical order.
func (s *Song) rawFeatures() [numFeatures]float64 {
	return [numFeatures]float64{
		s.Valence, s.Energy, s.Danceability, s.Tempo, s.Acousticness,
		s.Instrumentalness, s.Liveness, s.Speechiness, s.Loudness,
	}
}

// ScoredSong pairs a catalog song with a query-specific score in [0, 1].
type ScoredSong struct {
	Song  Song    `json:"song"`
	Score float64 `json:"score"`
}

// Mood is one of the eight rule-based mood categories.
type Mood int

const (
	MoodHappy Mood = iota
	MoodSad
	MoodEnergetic
	MoodCalm
	MoodDark
	MoodRomantic
	MoodAngry
	MoodParty
	numMoods
)

// String returns the wire name for the mood.
func (m Mood) String() string {
	switch m {
	case MoodHappy:
		return "happy"
	case MoodSad:
		return "sad"
	case MoodEnergetic:
		return "energetic"
	case MoodCalm:
		return "calm"
	case MoodDark:
		return "dark"
	case MoodRomantic:
		return "romantic"
	case MoodAngry:
		return "angry"
	case MoodParty:
		return "party"
	default:
		return "unknown"
	}
}

func (m Mood) valid() bool { return m >= 0 && m < numMoods }

// ParseMood maps a wire name to a Mood.
func ParseMood(s string) (Mood, error) {
	for m := Mood(0); m < numMoods; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMood, s)
}

// MoodNames lists all mood category names in declaration order.
func MoodNames() []string {
	names := make([]string, 0, numMoods)
	for m := Mood(0); m < numMoods; m++ {
		names = append(names, m.String())
	}
	return names
}

// TempoCategory is one of the three BPM buckets. Buckets are disjoint:
// slow t<=100, medium 100<t<120, fast t>=120.
type TempoCategory int

const (
	TempoSlow TempoCategory = iota
	TempoMedium
	TempoFast
	numTempos
)

// String returns the wire name for the tempo category.
func (t TempoCategory) String() string {
	switch t {
	case TempoSlow:
		return "slow"
	case TempoMedium:
		return "medium"
	case TempoFast:
		return "fast"
	default:
		return "unknown"
	}
}

func (t TempoCategory) valid() bool { return t >= 0 && t < numTempos }

// matches reports whether a BPM value falls in this bucket.
func (t TempoCategory) matches(bpm float64) bool {
	switch t {
	case TempoSlow:
		return bpm <= 100
	case TempoMedium:
		return bpm > 100 && bpm < 120
	case TempoFast:
		return bpm >= 120
	default:
		return false
	}
}

// ParseTempo maps a wire name to a TempoCategory.
func ParseTempo(s string) (TempoCategory, error) {
	for t := TempoCategory(0); t < numTempos; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTempo, s)
}

// TempoNames lists all tempo category names in declaration order.
func TempoNames() []string {
	names := make([]string, 0, numTempos)
	for t := TempoCategory(0); t < numTempos; t++ {
		names = append(names, t.String())
	}
	return names
}

// SimilarityMethod selects how song-to-song similarity is computed.
type SimilarityMethod int

const (
	// MethodKNN queries the prebuilt cosine neighbor lists.
	MethodKNN SimilarityMethod = iota
	// MethodCosine computes exact pairwise cosine similarity.
	MethodCosine
	// MethodEuclidean computes exact pairwise Euclidean distance,
	// converted to similarity via 1/(1+d).
	MethodEuclidean
	numMethods
)

// String returns the wire name for the method.
func (m SimilarityMethod) String() string {
	switch m {
	case MethodKNN:
		return "knn"
	case MethodCosine:
		return "cosine"
	case MethodEuclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

func (m SimilarityMethod) valid() bool { return m >= 0 && m < numMethods }

// ParseMethod maps a wire name to a SimilarityMethod.
func ParseMethod(s string) (SimilarityMethod, error) {
	for m := SimilarityMethod(0); m < numMethods; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

// MethodNames lists all similarity method names in declaration order.
func MethodNames() []string {
	names := make([]string, 0, numMethods)
	for m := SimilarityMethod(0); m < numMethods; m++ {
		names = append(names, m.String())
	}
	return names
}
