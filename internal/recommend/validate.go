// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

import "fmt"

// Declared raw feature ranges. Unit features live in [0,1]; tempo and
// loudness use their natural units.
const (
	tempoMaxBPM = 300.0
	loudnessMin = -60.0
	loudnessMax = 0.0
)

// unitFeatures are the raw features bounded to [0, 1].
var unitFeatures = [...]int{
	featValence, featEnergy, featDanceability, featAcousticness,
	featInstrumentalness, featLiveness, featSpeechiness,
}

// ValidateCatalog fails fast on rows the upstream pipeline should have
// cleaned: missing ids, out-of-range features, duplicate track ids. The
// engine never imputes.
func ValidateCatalog(songs []Song) error {
	if len(songs) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(songs))
	for i := range songs {
		s := &songs[i]
		if s.TrackID == "" {
			return fmt.Errorf("%w: row %d has empty track_id", ErrInvalidCatalog, i)
		}
		if _, dup := seen[s.TrackID]; dup {
			return fmt.Errorf("%w: duplicate track_id %q at row %d", ErrInvalidCatalog, s.TrackID, i)
		}
		seen[s.TrackID] = struct{}{}

		raw := s.rawFeatures()
		for _, f := range unitFeatures {
			if raw[f] < 0 || raw[f] > 1 {
				return fmt.Errorf("%w: track %q %s=%g outside [0,1]",
					ErrInvalidCatalog, s.TrackID, featureNames[f], raw[f])
			}
		}
		if s.Tempo <= 0 || s.Tempo > tempoMaxBPM {
			return fmt.Errorf("%w: track %q tempo=%g outside (0,%g]",
				ErrInvalidCatalog, s.TrackID, s.Tempo, tempoMaxBPM)
		}
		if s.Loudness < loudnessMin || s.Loudness > loudnessMax {
			return fmt.Errorf("%w: track %q loudness=%g outside [%g,%g]",
				ErrInvalidCatalog, s.TrackID, s.Loudness, loudnessMin, loudnessMax)
		}
	}
	return nil
}
