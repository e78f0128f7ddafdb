// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package query

import (
	"context"
	"fmt"
	"time"
)

// ChartData is the Chart.js-shaped response every chart endpoint returns
// (§4.7). A Dataset value is nil where data is absent and must never be
// substituted with 0.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset is one named series within a ChartData response.
type ChartDataset struct {
	Label string     `json:"label"`
	Data  []*float64 `json:"data"`
}

// ParkRidesComparison returns, for one park, every ride's downtime
// percentage for each day in [startDate, endDate] (both YYYY-MM-DD,
// park-local), one dataset per ride. Feeds both the bar-chart UI and, via
// AsHeatmap, the ride x day heatmap.
func (s *Service) ParkRidesComparison(ctx context.Context, parkID, startDate, endDate string) (*ChartData, error) {
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	rides, err := s.db.GetRidesForPark(ctx, parkID)
	if err != nil {
		return nil, fmt.Errorf("park rides comparison, load rides for %s: %w", parkID, err)
	}

	byRideByDate := make(map[string]map[string]float64, len(rides))
	for _, d := range dates {
		daily, err := s.db.ListRideDailyStats(ctx, parkID, d)
		if err != nil {
			return nil, fmt.Errorf("park rides comparison, daily stats %s/%s: %w", parkID, d, err)
		}
		for _, stat := range daily {
			if stat.OperatingHoursMinutes == 0 {
				continue
			}
			byDate, ok := byRideByDate[stat.RideID]
			if !ok {
				byDate = make(map[string]float64)
				byRideByDate[stat.RideID] = byDate
			}
			byDate[d] = float64(stat.DowntimeMinutes) / float64(stat.OperatingHoursMinutes) * 100
		}
	}

	chart := &ChartData{Labels: chartLabelsForDates(dates)}
	for _, r := range rides {
		byDate := byRideByDate[r.ID]
		data := make([]*float64, len(dates))
		for i, d := range dates {
			if v, ok := byDate[d]; ok {
				vv := v
				data[i] = &vv
			}
		}
		chart.Datasets = append(chart.Datasets, ChartDataset{Label: r.Name, Data: data})
	}
	return chart, nil
}

// RideWaitTimeHistory returns one ride's average wait time for each day in
// [startDate, endDate], a single-dataset line chart.
func (s *Service) RideWaitTimeHistory(ctx context.Context, rideID, parkID, startDate, endDate string) (*ChartData, error) {
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	data := make([]*float64, len(dates))
	for i, d := range dates {
		daily, found, err := s.rideDailyStat(ctx, parkID, rideID, d)
		if err != nil {
			return nil, fmt.Errorf("ride wait time history %s/%s: %w", rideID, d, err)
		}
		if found && daily.AvgWaitMinutes != nil {
			v := *daily.AvgWaitMinutes
			data[i] = &v
		}
	}

	return &ChartData{
		Labels:   chartLabelsForDates(dates),
		Datasets: []ChartDataset{{Label: rideID, Data: data}},
	}, nil
}

func (s *Service) rideDailyStat(ctx context.Context, parkID, rideID, statDate string) (rideDailyStat, bool, error) {
	daily, err := s.db.ListRideDailyStats(ctx, parkID, statDate)
	if err != nil {
		return rideDailyStat{}, false, err
	}
	for _, d := range daily {
		if d.RideID == rideID {
			return rideDailyStat{AvgWaitMinutes: d.AvgWaitMinutes}, true, nil
		}
	}
	return rideDailyStat{}, false, nil
}

type rideDailyStat struct {
	AvgWaitMinutes *float64
}

// HeatmapData is the reshaped form the heatmap endpoint returns: one row per
// entity (dataset), one column per time label, numeric-or-null cells.
type HeatmapData struct {
	Entities   []string     `json:"entities"`
	TimeLabels []string     `json:"time_labels"`
	Matrix     [][]*float64 `json:"matrix"`
}

// AsHeatmap reshapes a ChartData into the heatmap's entities/time_labels/
// matrix form: one entity per dataset, one column per label.
func AsHeatmap(chart *ChartData) *HeatmapData {
	h := &HeatmapData{TimeLabels: chart.Labels}
	for _, ds := range chart.Datasets {
		h.Entities = append(h.Entities, ds.Label)
		h.Matrix = append(h.Matrix, ds.Data)
	}
	return h
}

func dateRange(startDate, endDate string) ([]string, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, pacific)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.ParseInLocation("2006-01-02", endDate, pacific)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %q before start date %q", endDate, startDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

// chartLabelsForDates renders each date as "Mon DD" (§4.7's daily-chart
// label format).
func chartLabelsForDates(dates []string) []string {
	labels := make([]string, len(dates))
	for i, d := range dates {
		t, err := time.ParseInLocation("2006-01-02", d, pacific)
		if err != nil {
			labels[i] = d
			continue
		}
		labels[i] = t.Format("Jan 2")
	}
	return labels
}
