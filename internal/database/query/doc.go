// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package query provides SQL query building utilities for the database package.
//
// This package reduces code duplication and provides type-safe query construction
// for parameterized SQL WHERE clauses. It ensures consistent parameter handling
// and prevents SQL injection vulnerabilities.
//
// # Overview
//
// The WhereBuilder is the primary component, providing a fluent interface for
// constructing WHERE clauses with properly parameterized queries:
//
//	wb := query.NewWhereBuilder()
//	wb.AddDateRange(startDate, endDate)
//	wb.AddParks([]string{"magic-kingdom", "epcot"})
//	wb.AddCategories([]string{"coaster", "dark_ride"})
//	whereClause, args := wb.Build()
//	// Result: "recorded_at >= ? AND recorded_at <= ? AND park_id IN (?, ?) AND category IN (?, ?)"
//	// Args: [startDate, endDate, "magic-kingdom", "epcot", "coaster", "dark_ride"]
//
// # Usage Example
//
// Building a query with multiple filters:
//
//	func GetFilteredSnapshots(ctx context.Context, filter Filter) ([]Snapshot, error) {
//	    wb := query.NewWhereBuilder()
//	    wb.AddDateRange(filter.StartDate, filter.EndDate)
//	    wb.AddParks(filter.ParkIDs)
//	    wb.AddRides(filter.RideIDs)
//	    wb.AddCategories(filter.Categories)
//
//	    whereClause, args := wb.Build()
//
//	    sql := fmt.Sprintf(`
//	        SELECT * FROM ride_status_snapshots
//	        WHERE %s
//	        ORDER BY recorded_at DESC
//	        LIMIT ?
//	    `, whereClause)
//	    args = append(args, filter.Limit)
//
//	    rows, err := db.QueryContext(ctx, sql, args...)
//	    // ...
//	}
//
// Adding custom clauses:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("shame_score >= ?", 50.0)
//	wb.AddClause("is_down = ?", true)
//
// # Available Filter Methods
//
// The WhereBuilder provides methods for common filter types:
//
//   - AddDateRange: Filters by recorded_at date range
//   - AddParks: Filters by park ID list (IN clause)
//   - AddRides: Filters by ride ID list (IN clause)
//   - AddCategories: Filters by ride category (IN clause)
//   - AddSources: Filters by upstream data source (IN clause)
//   - AddClause: Adds custom WHERE clause with parameters
//
// # SQL Injection Prevention
//
// All methods use parameterized queries with ? placeholders:
//
//	// Safe - parameters are properly escaped by the database driver
//	wb.AddParks(userInput)  // Generates: "park_id IN (?, ?)"
//
//	// The generated SQL is safe regardless of input content
//	// Never concatenate user input directly into SQL strings
//
// # Thread Safety
//
// WhereBuilder instances are not thread-safe. Create a new instance per query
// or protect concurrent access with appropriate synchronization.
//
// # Performance
//
//   - Zero allocations for empty builders (returns "1=1")
//   - Efficient string building using slices
//   - No reflection or dynamic SQL parsing
//
// # See Also
//
//   - internal/database: Main database package using this builder
//   - internal/models: Filter types used with the builder
package query
