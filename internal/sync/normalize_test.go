// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import "testing"

func TestNormalizeRideName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Space Mountain", "space mountain"},
		{"Space Mountain®", "space mountain"},
		{"The Twilight Zone Tower of Terror™", "twilight zone tower of terror"},
		{"Disney's Animal Kingdom", "animal kingdom"},
		{"It's a Small World", "its a small world"},
		{"  Extra   Spaces   Here  ", "extra spaces here"},
		{"", ""},
	}

	for _, tc := range cases {
		got := normalizeRideName(tc.in)
		if got != tc.want {
			t.Errorf("normalizeRideName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRideNameIdempotent(t *testing.T) {
	name := "The Haunted Mansion®"
	once := normalizeRideName(name)
	twice := normalizeRideName(once)
	if once != twice {
		t.Errorf("normalization not idempotent: %q != %q", once, twice)
	}
}
