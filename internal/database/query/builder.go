// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

// Package query provides SQL query building utilities for the database package.
// It reduces code duplication and provides type-safe query construction.
package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
// It ensures consistent parameter handling and reduces SQL injection risks.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddDateRange(startDate, endDate)
//	wb.AddParks([]string{"park-1", "park-2"})
//	whereClause, args := wb.Build()
//	// recorded_at >= ? AND recorded_at <= ? AND park_id IN (?, ?)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause with its arguments.
// This is useful for custom conditions not covered by helper methods.
//
// Parameters:
//   - clause: SQL condition fragment (e.g., "is_down = ?")
//   - args: Arguments to bind to placeholders in the clause
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddDateRange adds start and/or end date filters to the WHERE clause.
// Nil dates are skipped, allowing flexible date range queries.
//
// Parameters:
//   - startDate: Optional start date (nil to skip)
//   - endDate: Optional end date (nil to skip)
//
// Generates:
//   - "recorded_at >= ?" if startDate is non-nil
//   - "recorded_at <= ?" if endDate is non-nil
//
// recorded_at is used rather than DATE(recorded_at) so DuckDB's zonemaps can
// prune partitions; wrapping the column in a function defeats that.
func (wb *WhereBuilder) AddDateRange(startDate, endDate *time.Time) *WhereBuilder {
	if startDate != nil {
		wb.clauses = append(wb.clauses, "recorded_at >= ?")
		wb.args = append(wb.args, *startDate)
	}
	if endDate != nil {
		wb.clauses = append(wb.clauses, "recorded_at <= ?")
		wb.args = append(wb.args, *endDate)
	}
	return wb
}

// AddParks adds a park filter using IN clause.
// Generates "park_id IN (?, ?, ...)" for filtering by park.
func (wb *WhereBuilder) AddParks(parkIDs []string) *WhereBuilder {
	if len(parkIDs) > 0 {
		placeholders := make([]string, len(parkIDs))
		for i, id := range parkIDs {
			placeholders[i] = "?"
			wb.args = append(wb.args, id)
		}
		wb.clauses = append(wb.clauses, fmt.Sprintf("park_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	return wb
}

// AddRides adds a ride filter using IN clause.
// Generates "ride_id IN (?, ?, ...)" for filtering by ride.
func (wb *WhereBuilder) AddRides(rideIDs []string) *WhereBuilder {
	if len(rideIDs) > 0 {
		placeholders := make([]string, len(rideIDs))
		for i, id := range rideIDs {
			placeholders[i] = "?"
			wb.args = append(wb.args, id)
		}
		wb.clauses = append(wb.clauses, fmt.Sprintf("ride_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	return wb
}

// AddCategories adds a ride category filter using IN clause.
// Generates "category IN (?, ?, ...)" for filtering by ride category.
func (wb *WhereBuilder) AddCategories(categories []string) *WhereBuilder {
	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, category := range categories {
			placeholders[i] = "?"
			wb.args = append(wb.args, category)
		}
		wb.clauses = append(wb.clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ", ")))
	}
	return wb
}

// AddSources adds an upstream data source filter using IN clause.
// Generates "data_source IN (?, ?, ...)" for filtering by upstream origin.
func (wb *WhereBuilder) AddSources(sources []string) *WhereBuilder {
	if len(sources) > 0 {
		placeholders := make([]string, len(sources))
		for i, source := range sources {
			placeholders[i] = "?"
			wb.args = append(wb.args, source)
		}
		wb.clauses = append(wb.clauses, fmt.Sprintf("data_source IN (%s)", strings.Join(placeholders, ", ")))
	}
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
//
// Returns:
//   - string: Complete WHERE clause (without "WHERE" keyword)
//   - []interface{}: Arguments to bind to placeholders
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
