// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package sync

import (
	"strings"
	"unicode"
)

// trademarkSymbols are stripped entirely rather than replaced with a space,
// matching how they appear glued to the preceding word ("Space Mountain®").
var trademarkSymbols = []string{"®", "™", "©"}

// normalizeRideName lowercases, strips apostrophes and trademark symbols,
// collapses whitespace, and removes a leading "the" or "disney's" (§4.2
// step 2). The result is what both the exact-name and fuzzy resolution
// steps compare against.
func normalizeRideName(name string) string {
	s := strings.ToLower(name)

	for _, sym := range trademarkSymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "") // right single quotation mark

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "disney's ")
	s = strings.TrimPrefix(s, "the ")

	s = collapseWhitespace(s)
	return s
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
