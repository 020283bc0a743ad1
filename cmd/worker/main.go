package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"deal-stats-api/internal/cache"
	"deal-stats-api/internal/config"
	"deal-stats-api/internal/database"
	"deal-stats-api/internal/events"
	"deal-stats-api/internal/features"
	"deal-stats-api/internal/job"
	"deal-stats-api/internal/stats"
	"deal-stats-api/internal/tracing"
)

// The worker runs exactly one job per invocation and exits; recurrence is the
// scheduler's concern. Overlapping invocations are safe because every job is
// idempotent.
func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	timezone := flag.String("timezone", "", "IANA timezone for the day window (overrides config)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <job>\njobs:\n  %s\n", os.Args[0], job.ComputeStatsByCustomer)
		os.Exit(2)
	}

	kind, err := job.ParseKind(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to parse job: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *timezone != "" {
		cfg.Stats.Timezone = *timezone
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "deal-stats-worker",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	flags := features.NewManager()
	flags.Register(features.FeatureConcurrentUpserts, cfg.Stats.ConcurrentUpserts, "concurrent per-customer stat upserts")
	defer flags.Shutdown()

	// A Redis cache shared with the API lets the worker invalidate the day's
	// cached stats payload after writing fresh rows.
	var store cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("Cache unavailable, continuing without it: %v", err)
		} else {
			defer redisCache.Close()
			store = redisCache
		}
	}

	eventManager := events.NewManager(true)
	defer eventManager.Shutdown()

	switch kind {
	case job.ComputeStatsByCustomer:
		runComputeStatsByCustomer(db, loc, flags, store, eventManager)
	default:
		log.Fatalf("Job %s has no handler", kind)
	}
}

func runComputeStatsByCustomer(db *database.DB, loc *time.Location, flags *features.Manager, store cache.Cache, eventManager *events.Manager) {
	log.Println("Computing stats by customer...")

	engine := stats.NewEngineWithOptions(db, stats.EngineOptions{
		Location: loc,
		Events:   eventManager,
		Features: flags,
		Cache:    store,
	})

	report, err := engine.Run(context.Background(), time.Now())
	if err != nil {
		log.Fatalf("Aggregation run failed, nothing was written: %v", err)
	}

	for _, f := range report.Failed {
		log.Printf("Failed to write stats for customer %s: %v", f.CustomerOrganisationNumber, f.Err)
	}

	log.Printf("Finished computing stats by customer: date=%s customers=%d failed=%d",
		report.Window.DateKey(), report.Customers, len(report.Failed))
}
