package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"deal-stats-api/internal/cache"
	"deal-stats-api/internal/database"
	"deal-stats-api/internal/events"
	"deal-stats-api/internal/features"
	"deal-stats-api/internal/models"
	"deal-stats-api/internal/tracing"
)

// Engine computes daily per-customer deal statistics. Each run scans the deals
// created within the current day window, groups them by customer and upserts
// one stat row per (day, customer) pair. Runs are idempotent: every run fully
// replaces the totals for its day, so re-running any number of times converges
// on the same records.
type Engine struct {
	db       *database.DB
	loc      *time.Location
	events   *events.Manager
	features *features.Manager
	cache    cache.Cache
}

// EngineOptions holds optional collaborators for an Engine.
type EngineOptions struct {
	// Location is the time reference used to resolve the day window.
	// Defaults to the server's local zone.
	Location *time.Location
	// Events, when set, receives a stats.computed event after each run.
	Events *events.Manager
	// Features controls the concurrent_upserts flag.
	Features *features.Manager
	// Cache, when set, has the day's cached stats payload invalidated after
	// each run.
	Cache cache.Cache
}

// NewEngine creates an engine with default options.
func NewEngine(db *database.DB) *Engine {
	return NewEngineWithOptions(db, EngineOptions{})
}

// NewEngineWithOptions creates an engine with the given options.
func NewEngineWithOptions(db *database.DB, opts EngineOptions) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Engine{
		db:       db,
		loc:      loc,
		events:   opts.Events,
		features: opts.Features,
		cache:    opts.Cache,
	}
}

// FailedUpsert identifies a customer whose stat row could not be written.
type FailedUpsert struct {
	CustomerOrganisationNumber string
	Err                        error
}

// Report summarizes one engine run.
type Report struct {
	Window    DayWindow
	Customers int // stat rows written
	Failed    []FailedUpsert
}

// PartialFailure reports whether some, but not necessarily all, upserts failed.
func (r Report) PartialFailure() bool {
	return len(r.Failed) > 0
}

// Run executes one aggregation pass anchored at now. A failed read aborts the
// whole run before anything is written; failed upserts are collected in the
// report and do not block the remaining customers.
func (e *Engine) Run(ctx context.Context, now time.Time) (Report, error) {
	window, err := CurrentDayWindow(now, e.loc)
	if err != nil {
		return Report{}, err
	}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "stats.compute_by_customer")
	defer span.End()
	span.SetAttributes(attribute.String("stats.date", window.DateKey()))

	totals, err := e.db.DealTotalsByCustomer(ctx, window.Start, window.End)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read deal totals: %w", err)
	}

	report := Report{Window: window}
	updatedAt := now.UTC()

	if e.features != nil && e.features.IsEnabled(features.FeatureConcurrentUpserts) {
		report.Customers, report.Failed = e.upsertConcurrent(ctx, window, totals, updatedAt)
	} else {
		report.Customers, report.Failed = e.upsertSequential(ctx, window, totals, updatedAt)
	}

	span.SetAttributes(
		attribute.Int("stats.customers", report.Customers),
		attribute.Int("stats.failed", len(report.Failed)),
	)

	if e.cache != nil {
		// Best effort: a stale cached payload only lives until its TTL.
		_ = e.cache.Delete(ctx, cache.DailyStatsKey(window.DateKey()))
	}

	if e.events != nil {
		e.events.PublishStatsComputed(ctx, window.Start, report.Customers, len(report.Failed))
	}

	return report, nil
}

func (e *Engine) upsertSequential(ctx context.Context, window DayWindow, totals []models.CustomerDealTotals, updatedAt time.Time) (int, []FailedUpsert) {
	written := 0
	var failed []FailedUpsert

	for _, row := range totals {
		if err := e.db.UpsertDailyCustomerStat(ctx, statFor(window, row, updatedAt)); err != nil {
			failed = append(failed, FailedUpsert{
				CustomerOrganisationNumber: row.CustomerOrganisationNumber,
				Err:                        err,
			})
			continue
		}
		written++
	}

	return written, failed
}

// upsertConcurrent fans the per-customer writes out to goroutines. Each upsert
// is still a single atomic statement keyed by (date, customer), so ordering
// between customers does not matter.
func (e *Engine) upsertConcurrent(ctx context.Context, window DayWindow, totals []models.CustomerDealTotals, updatedAt time.Time) (int, []FailedUpsert) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		written int
		failed  []FailedUpsert
	)

	for _, row := range totals {
		wg.Add(1)
		go func(row models.CustomerDealTotals) {
			defer wg.Done()

			err := e.db.UpsertDailyCustomerStat(ctx, statFor(window, row, updatedAt))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, FailedUpsert{
					CustomerOrganisationNumber: row.CustomerOrganisationNumber,
					Err:                        err,
				})
				return
			}
			written++
		}(row)
	}

	wg.Wait()
	return written, failed
}

func statFor(window DayWindow, row models.CustomerDealTotals, updatedAt time.Time) models.DailyCustomerStat {
	return models.DailyCustomerStat{
		Date:                       window.Start,
		CustomerOrganisationNumber: row.CustomerOrganisationNumber,
		TotalDeals:                 row.TotalDeals,
		TotalPrice:                 row.TotalPrice,
		UpdatedAt:                  updatedAt,
	}
}
