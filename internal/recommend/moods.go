// VibeMap - Mood Clustering and Song Recommendation Service
// Copyright 2026 VibeMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vibemap/vibemap

package recommend

// moodBound is one inclusive feature interval of a mood rule. Every bounded
// feature lives in [0, 1], so the interval midpoint doubles as the mood's
// ideal value for that feature.
type moodBound struct {
	feat int
	lo   float64
	hi   float64
}

// moodRules defines each mood as a conjunction of feature intervals,
// evaluated on raw feature values where the thresholds are meaningful.
var moodRules = [numMoods][]moodBound{
	MoodHappy:     {{featValence, 0.6, 1}, {featEnergy, 0.5, 1}},
	MoodSad:       {{featValence, 0, 0.4}, {featEnergy, 0, 0.4}},
	MoodEnergetic: {{featEnergy, 0.7, 1}, {featDanceability, 0.5, 1}},
	MoodCalm:      {{featEnergy, 0, 0.4}, {featAcousticness, 0.5, 1}},
	MoodDark:      {{featValence, 0, 0.3}, {featEnergy, 0.6, 1}},
	MoodRomantic:  {{featValence, 0.5, 1}, {featAcousticness, 0.4, 1}, {featEnergy, 0, 0.6}},
	MoodAngry:     {{featEnergy, 0.7, 1}, {featValence, 0, 0.4}},
	MoodParty:     {{featDanceability, 0.7, 1}, {featEnergy, 0.6, 1}, {featValence, 0.5, 1}},
}

// matchesMood reports whether a song's raw features satisfy the mood rule.
func matchesMood(s *Song, m Mood) bool {
	raw := s.rawFeatures()
	for _, b := range moodRules[m] {
		if raw[b.feat] < b.lo || raw[b.feat] > b.hi {
			return false
		}
	}
	return true
}

// idealRawPoint builds the mood's ideal point in raw units: the midpoint of
// every bounded feature's interval, with unbounded features held at the
// catalog mean.
func idealRawPoint(m Mood, rawMeans [numFeatures]float64) [numFeatures]float64 {
	point := rawMeans
	for _, b := range moodRules[m] {
		point[b.feat] = (b.lo + b.hi) / 2
	}
	return point
}
