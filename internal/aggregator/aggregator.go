// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package aggregator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/parkwatch/internal/config"
	"github.com/tomtom215/parkwatch/internal/database"
	"github.com/tomtom215/parkwatch/internal/logging"
	"github.com/tomtom215/parkwatch/internal/metrics"
	"github.com/tomtom215/parkwatch/internal/models"
)

const (
	defaultCheckInterval      = time.Hour
	defaultMaxConcurrentParks = 8
)

// Aggregator drives the hourly/daily/weekly rollup chain. One tick of its
// internal ticker attempts all three tiers; each tier's own
// aggregation_log barrier makes a redundant attempt a harmless no-op, the
// same way the newsletter scheduler's checkAndExecute can run every minute
// without double-sending a newsletter whose schedule already fired.
type Aggregator struct {
	db  *database.DB
	cfg config.AggregatorConfig

	snapshotIntervalMinutes int
	checkInterval           time.Duration
	maxConcurrentParks      int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds an Aggregator. snapshotIntervalMinutes is the collector's
// configured cadence (config.CollectorConfig.SnapshotIntervalMinutes),
// needed to turn a raw snapshot count into minutes/hours during the hourly
// rollup.
func New(db *database.DB, cfg config.AggregatorConfig, snapshotIntervalMinutes int) *Aggregator {
	checkInterval := time.Duration(cfg.HourlyIntervalMinutes) * time.Minute
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}
	if snapshotIntervalMinutes <= 0 {
		snapshotIntervalMinutes = 10
	}
	return &Aggregator{
		db:                      db,
		cfg:                     cfg,
		snapshotIntervalMinutes: snapshotIntervalMinutes,
		checkInterval:           checkInterval,
		maxConcurrentParks:      defaultMaxConcurrentParks,
	}
}

// Start begins the aggregator's ticker loop.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("aggregator already running")
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.mu.Unlock()

	logging.Info().Dur("check_interval", a.checkInterval).Msg("starting aggregator")
	go a.run(ctx)
	return nil
}

// Stop stops the ticker loop and waits for the in-flight tick to finish.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	close(a.stopCh)
	<-a.doneCh

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) run(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	a.checkAndExecute(ctx)

	for {
		select {
		case <-ticker.C:
			a.checkAndExecute(ctx)
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// checkAndExecute runs the three rollup tiers in order: hourly must settle
// before daily reads it, daily before weekly reads it.
func (a *Aggregator) checkAndExecute(ctx context.Context) {
	a.runHourly(ctx)
	a.runDailySweep(ctx)
	a.runWeeklySweep(ctx)
}

// runHourly aggregates the most recently fully-completed UTC hour. The
// barrier key is the hour itself, so a tick that fires a few minutes late
// or is retried after a crash just re-attempts the same key and either
// finds it already succeeded or resumes a stuck run.
func (a *Aggregator) runHourly(ctx context.Context) {
	hourStart := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour)
	dateKey := hourStart.Format("2006-01-02T15")

	started, err := a.db.BeginAggregationRun(ctx, dateKey, models.AggregationHourly, false)
	if err != nil {
		logging.Error().Err(err).Str("hour", dateKey).Msg("failed to claim hourly aggregation barrier")
		return
	}
	if !started {
		return
	}

	start := time.Now()
	rowsWritten, runErr := a.db.AggregateHour(ctx, hourStart, a.snapshotIntervalMinutes)
	metrics.RecordAggregationRun("hourly", time.Since(start), rowsWritten, runErr)

	if err := a.db.FinishAggregationRun(ctx, dateKey, models.AggregationHourly, rowsWritten, runErr); err != nil {
		logging.Error().Err(err).Str("hour", dateKey).Msg("failed to finalize hourly aggregation barrier")
	}
	if runErr != nil {
		logging.Error().Err(runErr).Str("hour", dateKey).Msg("hourly aggregation failed")
		return
	}
	logging.Info().Str("hour", dateKey).Int64("rows_written", rowsWritten).Msg("hourly aggregation complete")
}

// runDailySweep attempts one daily-rollup barrier per UTC calendar day and,
// within it, aggregates every active park whose local clock has passed
// config.DailyHourLocal, using that park's own local yesterday as the stat
// date. A park whose local cutoff hasn't arrived yet simply isn't included
// in this run's rows_written; it is picked up on the following calendar
// day's attempt, a deliberate simplification recorded in DESIGN.md.
func (a *Aggregator) runDailySweep(ctx context.Context) {
	dateKey := time.Now().UTC().Format("2006-01-02")

	started, err := a.db.BeginAggregationRun(ctx, dateKey, models.AggregationDaily, false)
	if err != nil {
		logging.Error().Err(err).Str("date", dateKey).Msg("failed to claim daily aggregation barrier")
		return
	}
	if !started {
		return
	}

	parks, err := a.db.GetActiveParks(ctx)
	if err != nil {
		_ = a.db.FinishAggregationRun(ctx, dateKey, models.AggregationDaily, 0, err)
		logging.Error().Err(err).Msg("failed to load active parks for daily aggregation")
		return
	}

	start := time.Now()
	var total int64
	var firstErr error
	a.forEachPark(ctx, parks, func(ctx context.Context, park *models.Park) error {
		loc, err := time.LoadLocation(park.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q for park %s: %w", park.Timezone, park.ID, err)
		}
		nowLocal := time.Now().In(loc)
		if nowLocal.Hour() < a.cfg.DailyHourLocal {
			return nil
		}

		yesterday := nowLocal.AddDate(0, 0, -1)
		statDate := yesterday.Format("2006-01-02")
		dayStart := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, loc)
		dayEnd := dayStart.AddDate(0, 0, 1)

		rows, err := a.db.AggregateDay(ctx, park.ID, statDate, dayStart.UTC(), dayEnd.UTC())
		if err != nil {
			return fmt.Errorf("aggregate day %s for park %s: %w", statDate, park.ID, err)
		}
		atomic.AddInt64(&total, rows)
		return nil
	}, &firstErr)

	metrics.RecordAggregationRun("daily", time.Since(start), total, firstErr)
	if err := a.db.FinishAggregationRun(ctx, dateKey, models.AggregationDaily, total, firstErr); err != nil {
		logging.Error().Err(err).Str("date", dateKey).Msg("failed to finalize daily aggregation barrier")
	}
	logging.Info().Str("date", dateKey).Int64("rows_written", total).Int("parks", len(parks)).Msg("daily aggregation sweep complete")
}

// runWeeklySweep mirrors runDailySweep one tier up: one barrier per ISO
// week, sweeping every active park whose local weekday matches
// config.WeeklyDayLocal, rolling up that park's just-completed ISO week
// from ride_daily_stats/park_daily_stats.
func (a *Aggregator) runWeeklySweep(ctx context.Context) {
	isoYear, isoWeek := time.Now().UTC().ISOWeek()
	dateKey := fmt.Sprintf("%d-W%02d", isoYear, isoWeek)

	started, err := a.db.BeginAggregationRun(ctx, dateKey, models.AggregationWeekly, false)
	if err != nil {
		logging.Error().Err(err).Str("week", dateKey).Msg("failed to claim weekly aggregation barrier")
		return
	}
	if !started {
		return
	}

	parks, err := a.db.GetActiveParks(ctx)
	if err != nil {
		_ = a.db.FinishAggregationRun(ctx, dateKey, models.AggregationWeekly, 0, err)
		logging.Error().Err(err).Msg("failed to load active parks for weekly aggregation")
		return
	}

	start := time.Now()
	var total int64
	var firstErr error
	a.forEachPark(ctx, parks, func(ctx context.Context, park *models.Park) error {
		loc, err := time.LoadLocation(park.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q for park %s: %w", park.Timezone, park.ID, err)
		}
		nowLocal := time.Now().In(loc)
		if int(isoWeekday(nowLocal)) != a.cfg.WeeklyDayLocal {
			return nil
		}

		weekStart := models.ISOWeekStart(nowLocal, loc).AddDate(0, 0, -7)
		weekEnd := weekStart.AddDate(0, 0, 6)
		year, week := weekStart.ISOWeek()
		prevWeekStart := weekStart.AddDate(0, 0, -7)
		prevYear, prevWeek := prevWeekStart.ISOWeek()

		rows, err := a.db.AggregateWeek(ctx, park.ID, year, week,
			weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"), prevYear, prevWeek)
		if err != nil {
			return fmt.Errorf("aggregate week %d-W%02d for park %s: %w", year, week, park.ID, err)
		}
		atomic.AddInt64(&total, rows)
		return nil
	}, &firstErr)

	metrics.RecordAggregationRun("weekly", time.Since(start), total, firstErr)
	if err := a.db.FinishAggregationRun(ctx, dateKey, models.AggregationWeekly, total, firstErr); err != nil {
		logging.Error().Err(err).Str("week", dateKey).Msg("failed to finalize weekly aggregation barrier")
	}
	logging.Info().Str("week", dateKey).Int64("rows_written", total).Int("parks", len(parks)).Msg("weekly aggregation sweep complete")
}

// forEachPark runs fn over parks with bounded concurrency, collecting the
// first error encountered into *firstErr without aborting the other
// in-flight work, the same semaphore-bounded WaitGroup shape the teacher's
// checkAndExecute uses for concurrent schedule execution.
func (a *Aggregator) forEachPark(ctx context.Context, parks []*models.Park, fn func(context.Context, *models.Park) error, firstErr *error) {
	sem := make(chan struct{}, a.maxConcurrentParks)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, park := range parks {
		wg.Add(1)
		sem <- struct{}{}
		go func(park *models.Park) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := fn(ctx, park); err != nil {
				logging.Warn().Str("park_id", park.ID).Err(err).Msg("per-park aggregation step failed")
				mu.Lock()
				if *firstErr == nil {
					*firstErr = err
				}
				mu.Unlock()
			}
		}(park)
	}
	wg.Wait()
}

// isoWeekday returns t's weekday as ISO day-of-week (Monday=1..Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsRunning reports whether the aggregator's ticker loop is active.
func (a *Aggregator) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
