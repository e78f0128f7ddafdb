// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package api

import "errors"

var (
	errInvalidPeriod = errors.New("period must be one of live, today, yesterday, last_week, last_month")
	errInvalidFilter = errors.New("filter must be one of all-parks, disney-universal")
	errInvalidLimit  = errors.New("limit must be a positive integer")
	errInvalidDirection = errors.New("direction must be one of declining, improving")
	errMissingDateRange = errors.New("start_date and end_date are required (YYYY-MM-DD)")
)
