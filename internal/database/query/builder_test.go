// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package query

import (
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}

	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddDateRange(t *testing.T) {
	wb := NewWhereBuilder()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)

	wb.AddDateRange(&start, &end)

	whereClause, args := wb.Build()
	expected := "recorded_at >= ? AND recorded_at <= ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 2 {
		t.Errorf("Expected 2 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddParks(t *testing.T) {
	wb := NewWhereBuilder()
	parks := []string{"magic-kingdom", "epcot", "hollywood-studios"}

	wb.AddParks(parks)

	whereClause, args := wb.Build()
	expected := "park_id IN (?, ?, ?)"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}
	for i, park := range parks {
		if args[i] != park {
			t.Errorf("Expected arg[%d] = %q, got %q", i, park, args[i])
		}
	}
}

func TestWhereBuilder_Combined(t *testing.T) {
	wb := NewWhereBuilder()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	parks := []string{"magic-kingdom", "epcot"}
	categories := []string{"coaster", "dark_ride"}

	wb.AddDateRange(&start, nil)
	wb.AddParks(parks)
	wb.AddCategories(categories)

	whereClause, args := wb.Build()
	expected := "recorded_at >= ? AND park_id IN (?, ?) AND category IN (?, ?)"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 5 {
		t.Errorf("Expected 5 args, got %d", len(args))
	}
}

func TestWhereBuilder_BuildWithPrefix(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddClause("id = ?", 123)

	whereClause, args := wb.BuildWithPrefix()
	expected := "WHERE id = ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 1 || args[0] != 123 {
		t.Errorf("Expected args [123], got %v", args)
	}
}

func TestWhereBuilder_SkipEmpty(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddParks([]string{})      // Should be skipped
	wb.AddCategories([]string{}) // Should be skipped
	wb.AddClause("active = ?", true)

	whereClause, args := wb.Build()
	expected := "active = ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(args))
	}
}

// TestWhereBuilder_AddRides tests the AddRides method
func TestWhereBuilder_AddRides(t *testing.T) {
	tests := []struct {
		name           string
		rideIDs        []string
		expectedClause string
		expectedArgs   int
	}{
		{
			name:           "empty rides skipped",
			rideIDs:        []string{},
			expectedClause: "1=1",
			expectedArgs:   0,
		},
		{
			name:           "single ride",
			rideIDs:        []string{"space-mountain"},
			expectedClause: "ride_id IN (?)",
			expectedArgs:   1,
		},
		{
			name:           "multiple rides",
			rideIDs:        []string{"space-mountain", "big-thunder-mountain", "splash-mountain"},
			expectedClause: "ride_id IN (?, ?, ?)",
			expectedArgs:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddRides(tt.rideIDs)

			whereClause, args := wb.Build()
			if whereClause != tt.expectedClause {
				t.Errorf("Expected %q, got %q", tt.expectedClause, whereClause)
			}
			if len(args) != tt.expectedArgs {
				t.Errorf("Expected %d args, got %d", tt.expectedArgs, len(args))
			}
		})
	}
}

// TestWhereBuilder_AddSources tests the AddSources method
func TestWhereBuilder_AddSources(t *testing.T) {
	tests := []struct {
		name           string
		sources        []string
		expectedClause string
		expectedArgs   int
	}{
		{
			name:           "empty sources skipped",
			sources:        []string{},
			expectedClause: "1=1",
			expectedArgs:   0,
		},
		{
			name:           "single source",
			sources:        []string{"upstream_a"},
			expectedClause: "data_source IN (?)",
			expectedArgs:   1,
		},
		{
			name:           "multiple sources",
			sources:        []string{"upstream_a", "upstream_b"},
			expectedClause: "data_source IN (?, ?)",
			expectedArgs:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSources(tt.sources)

			whereClause, args := wb.Build()
			if whereClause != tt.expectedClause {
				t.Errorf("Expected %q, got %q", tt.expectedClause, whereClause)
			}
			if len(args) != tt.expectedArgs {
				t.Errorf("Expected %d args, got %d", tt.expectedArgs, len(args))
			}
		})
	}
}

// TestWhereBuilder_AddCategories tests the AddCategories method with various scenarios
func TestWhereBuilder_AddCategories(t *testing.T) {
	tests := []struct {
		name           string
		categories     []string
		expectedClause string
		expectedArgs   int
	}{
		{
			name:           "empty categories skipped",
			categories:     []string{},
			expectedClause: "1=1",
			expectedArgs:   0,
		},
		{
			name:           "single category",
			categories:     []string{"coaster"},
			expectedClause: "category IN (?)",
			expectedArgs:   1,
		},
		{
			name:           "all categories",
			categories:     []string{"coaster", "dark_ride", "water_ride", "flat_ride"},
			expectedClause: "category IN (?, ?, ?, ?)",
			expectedArgs:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddCategories(tt.categories)

			whereClause, args := wb.Build()
			if whereClause != tt.expectedClause {
				t.Errorf("Expected %q, got %q", tt.expectedClause, whereClause)
			}
			if len(args) != tt.expectedArgs {
				t.Errorf("Expected %d args, got %d", tt.expectedArgs, len(args))
			}
		})
	}
}

// TestWhereBuilder_AddDateRange_EdgeCases tests date range edge cases
func TestWhereBuilder_AddDateRange_EdgeCases(t *testing.T) {
	tests := []struct {
		name           string
		startDate      *time.Time
		endDate        *time.Time
		expectedClause string
		expectedArgs   int
	}{
		{
			name:           "both nil dates",
			startDate:      nil,
			endDate:        nil,
			expectedClause: "1=1",
			expectedArgs:   0,
		},
		{
			name:           "only start date",
			startDate:      timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			endDate:        nil,
			expectedClause: "recorded_at >= ?",
			expectedArgs:   1,
		},
		{
			name:           "only end date",
			startDate:      nil,
			endDate:        timePtr(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)),
			expectedClause: "recorded_at <= ?",
			expectedArgs:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddDateRange(tt.startDate, tt.endDate)

			whereClause, args := wb.Build()
			if whereClause != tt.expectedClause {
				t.Errorf("Expected %q, got %q", tt.expectedClause, whereClause)
			}
			if len(args) != tt.expectedArgs {
				t.Errorf("Expected %d args, got %d", tt.expectedArgs, len(args))
			}
		})
	}
}

// TestWhereBuilder_AddClause_MultipleArgs tests AddClause with multiple arguments
func TestWhereBuilder_AddClause_MultipleArgs(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddClause("status IN (?, ?, ?)", "active", "pending", "completed")

	whereClause, args := wb.Build()
	expected := "status IN (?, ?, ?)"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}
	if args[0] != "active" || args[1] != "pending" || args[2] != "completed" {
		t.Errorf("Unexpected args: %v", args)
	}
}

// TestWhereBuilder_ChainedCalls tests method chaining
func TestWhereBuilder_ChainedCalls(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder().
		AddDateRange(&start, &end).
		AddParks([]string{"magic-kingdom", "epcot"}).
		AddCategories([]string{"coaster"}).
		AddRides([]string{"space-mountain"}).
		AddSources([]string{"upstream_a"}).
		AddClause("active = ?", true)

	whereClause, args := wb.Build()

	// Check clause count: AddDateRange adds 2 clauses (start and end), so:
	// 2 (dates) + 1 (parks) + 1 (categories) + 1 (rides) + 1 (sources) + 1 (custom) = 7
	if wb.Count() != 7 {
		t.Errorf("Expected 7 clauses, got %d", wb.Count())
	}

	// Check total args: 2 dates + 2 parks + 1 category + 1 ride + 1 source + 1 custom = 8
	if len(args) != 8 {
		t.Errorf("Expected 8 args, got %d", len(args))
	}

	expectedParts := []string{
		"recorded_at >= ?",
		"recorded_at <= ?",
		"park_id IN",
		"category IN",
		"ride_id IN",
		"data_source IN",
		"active = ?",
	}

	for _, part := range expectedParts {
		if !containsString(whereClause, part) {
			t.Errorf("Expected clause to contain %q, got %q", part, whereClause)
		}
	}
}

// TestWhereBuilder_IsEmpty tests the IsEmpty method
func TestWhereBuilder_IsEmpty(t *testing.T) {
	wb := NewWhereBuilder()
	if !wb.IsEmpty() {
		t.Error("New builder should be empty")
	}

	wb.AddClause("test = ?", 1)
	if wb.IsEmpty() {
		t.Error("Builder should not be empty after adding clause")
	}
}

// TestWhereBuilder_Count tests the Count method
func TestWhereBuilder_Count(t *testing.T) {
	wb := NewWhereBuilder()
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	wb.AddClause("a = ?", 1)
	if wb.Count() != 1 {
		t.Errorf("Expected count 1, got %d", wb.Count())
	}

	wb.AddClause("b = ?", 2)
	if wb.Count() != 2 {
		t.Errorf("Expected count 2, got %d", wb.Count())
	}
}

// TestWhereBuilder_BuildWithPrefix_Empty tests BuildWithPrefix with empty builder
func TestWhereBuilder_BuildWithPrefix_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	whereClause, args := wb.BuildWithPrefix()

	expected := "WHERE 1=1"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

// TestWhereBuilder_ArgumentOrder tests that arguments are in correct order
func TestWhereBuilder_ArgumentOrder(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	wb := NewWhereBuilder().
		AddDateRange(&start, nil).
		AddParks([]string{"magic-kingdom"}).
		AddClause("custom = ?", "value")

	_, args := wb.Build()

	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}

	if _, ok := args[0].(time.Time); !ok {
		t.Errorf("Expected first arg to be time.Time, got %T", args[0])
	}

	if args[1] != "magic-kingdom" {
		t.Errorf("Expected second arg to be 'magic-kingdom', got %v", args[1])
	}

	if args[2] != "value" {
		t.Errorf("Expected third arg to be 'value', got %v", args[2])
	}
}

// BenchmarkWhereBuilder_Build benchmarks the Build method
func BenchmarkWhereBuilder_Build(b *testing.B) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wb := NewWhereBuilder().
			AddDateRange(&start, &end).
			AddParks([]string{"magic-kingdom", "epcot", "hollywood-studios"}).
			AddCategories([]string{"coaster", "dark_ride"}).
			AddRides([]string{"space-mountain", "tower-of-terror"})
		_, _ = wb.Build()
	}
}

// BenchmarkWhereBuilder_Large benchmarks with many values
func BenchmarkWhereBuilder_Large(b *testing.B) {
	parks := make([]string, 100)
	for i := range parks {
		parks[i] = "park" + string(rune('0'+i%10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wb := NewWhereBuilder()
		wb.AddParks(parks)
		_, _ = wb.Build()
	}
}

// Helper functions
func timePtr(t time.Time) *time.Time {
	return &t
}

func containsString(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsSubstring(s, substr))
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
