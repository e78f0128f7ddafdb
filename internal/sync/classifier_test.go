// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"testing"

	"github.com/tomtom215/parkwatch/internal/models"
)

func TestMatchPatternFlagship(t *testing.T) {
	cases := []string{
		"Twilight Zone Tower of Terror",
		"Expedition Everest - Legend of the Forbidden Mountain",
		"Space Mountain",
		"Kali River Rapids",
		"Grizzly River Run Falls",
	}
	for _, name := range cases {
		tier, confidence, ok := matchPattern(name)
		if !ok {
			t.Errorf("matchPattern(%q) did not match, expected a flagship pattern", name)
			continue
		}
		if tier != 1 {
			t.Errorf("matchPattern(%q) tier = %d, want 1", name, tier)
		}
		if confidence < 0.60 || confidence > 0.85 {
			t.Errorf("matchPattern(%q) confidence = %.2f, outside [0.60, 0.85]", name, confidence)
		}
	}
}

func TestMatchPatternKiddie(t *testing.T) {
	cases := []string{
		"Prince Charming Regal Carrousel",
		"Cinderella Carousel",
		"Barnstormer Jr.",
		"Disney Junior - Live on Stage",
		"Mickey's PhilharMagic Theater",
	}
	for _, name := range cases {
		tier, confidence, ok := matchPattern(name)
		if !ok {
			t.Errorf("matchPattern(%q) did not match, expected a kiddie pattern", name)
			continue
		}
		if tier != 3 {
			t.Errorf("matchPattern(%q) tier = %d, want 3", name, tier)
		}
		if confidence < 0.60 || confidence > 0.85 {
			t.Errorf("matchPattern(%q) confidence = %.2f, outside [0.60, 0.85]", name, confidence)
		}
	}
}

func TestMatchPatternNoMatch(t *testing.T) {
	_, _, ok := matchPattern("Jungle Cruise")
	if ok {
		t.Error("expected Jungle Cruise to not match any keyword pattern")
	}
}

func TestValidateAIClassification(t *testing.T) {
	cases := []struct {
		name string
		ai   *models.AIClassification
		want bool
	}{
		{"nil", nil, false},
		{"valid", &models.AIClassification{Tier: 1, Category: models.RideCategoryAttraction, Confidence: 0.75}, true},
		{"tier out of range", &models.AIClassification{Tier: 4, Confidence: 0.75}, false},
		{"tier zero", &models.AIClassification{Tier: 0, Confidence: 0.75}, false},
		{"category not enumerated", &models.AIClassification{Tier: 2, Category: "BACKSTAGE_TOUR", Confidence: 0.75}, false},
		{"confidence too low", &models.AIClassification{Tier: 2, Confidence: 0.40}, false},
		{"confidence too high", &models.AIClassification{Tier: 2, Confidence: 1.01}, false},
		{"confidence at floor", &models.AIClassification{Tier: 2, Confidence: 0.50}, true},
		{"confidence at ceiling", &models.AIClassification{Tier: 2, Confidence: 1.00}, true},
	}

	for _, tc := range cases {
		got, reason := validateAIClassification(tc.ai)
		if got != tc.want {
			t.Errorf("%s: validateAIClassification() = %v (%s), want %v", tc.name, got, reason, tc.want)
		}
	}
}
