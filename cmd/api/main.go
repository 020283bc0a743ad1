package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"deal-stats-api/internal/cache"
	"deal-stats-api/internal/config"
	"deal-stats-api/internal/database"
	"deal-stats-api/internal/events"
	"deal-stats-api/internal/features"
	"deal-stats-api/internal/handler"
	"deal-stats-api/internal/middleware"
	"deal-stats-api/internal/service"
	"deal-stats-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "deal-stats-api",
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

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "caching of read endpoints")
	flags.Register(features.FeatureEventHooksEnabled, true, "in-process event hooks")
	flags.Register(features.FeatureConcurrentUpserts, cfg.Stats.ConcurrentUpserts, "concurrent per-customer stat upserts")
	defer flags.Shutdown()

	// Cache: Redis when configured, in-process otherwise
	var store cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisAddr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer redisCache.Close()
			store = redisCache
		} else {
			store = cache.NewInMemoryCache()
		}
	}

	// Events
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()

	// Initialize service
	svc := service.NewServiceWithOptions(db, service.ServiceOptions{
		Location: loc,
		Events:   eventManager,
		Features: flags,
		Cache:    store,
	})

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/deals", func(r chi.Router) {
		r.Get("/", h.ListDeals)
		r.Post("/", h.CreateDeal)
		r.Patch("/{id}/expiry", h.UpdateDealExpiry)
	})

	r.Get("/stats/daily", h.GetDailyStats)

	r.Route("/customers", func(r chi.Router) {
		r.Get("/{customer_organisation_number}/stats", h.GetCustomerStats)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
