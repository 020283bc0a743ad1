package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deal-stats-api/internal/cache"
	"deal-stats-api/internal/database"
	"deal-stats-api/internal/events"
	"deal-stats-api/internal/features"
	"deal-stats-api/internal/models"
	"deal-stats-api/internal/stats"
	"deal-stats-api/internal/validation"
)

const (
	dealsCacheTTL = 30 * time.Second
	statsCacheTTL = 5 * time.Minute
)

// Service provides business logic for the deal stats API.
type Service struct {
	db       *database.DB
	loc      *time.Location
	events   *events.Manager
	features *features.Manager
	cache    cache.Cache
}

// ServiceOptions holds optional collaborators for a service.
type ServiceOptions struct {
	Location *time.Location
	Events   *events.Manager
	Features *features.Manager
	Cache    cache.Cache
}

// NewService creates a new service instance.
func NewService(db *database.DB) *Service {
	return NewServiceWithOptions(db, ServiceOptions{})
}

// NewServiceWithOptions creates a new service instance with custom options.
func NewServiceWithOptions(db *database.DB, opts ServiceOptions) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Service{
		db:       db,
		loc:      loc,
		events:   opts.Events,
		features: opts.Features,
		cache:    opts.Cache,
	}
}

// CreateDeal validates and persists a new deal. The server assigns the id and
// the creation date; creation date is immutable afterwards.
func (s *Service) CreateDeal(ctx context.Context, req models.CreateDealRequest) (models.Deal, error) {
	if err := validation.ValidateCreateDealRequest(req); err != nil {
		return models.Deal{}, err
	}

	deal := models.Deal{
		ID:                         uuid.New().String(),
		SellerID:                   req.SellerID,
		CustomerOrganisationNumber: req.CustomerOrganisationNumber,
		Price:                      req.Price,
		// Truncated to seconds to match the stored RFC3339 precision.
		CreationDate: time.Now().UTC().Truncate(time.Second),
		ExpiryDate:   req.ExpiryDate.UTC().Truncate(time.Second),
	}

	if err := s.db.InsertDeal(ctx, deal); err != nil {
		return models.Deal{}, fmt.Errorf("failed to create deal: %w", err)
	}

	s.invalidateDealsCache(ctx)

	if s.events != nil {
		s.events.PublishDealCreated(ctx, deal)
	}

	return deal, nil
}

// ListDeals returns all deals sorted by creation date descending.
func (s *Service) ListDeals(ctx context.Context) ([]models.Deal, error) {
	if s.cacheEnabled() {
		var cached []models.Deal
		if err := cache.GetJSON(ctx, s.cache, cache.DealsListKey, &cached); err == nil {
			return cached, nil
		}
	}

	deals, err := s.db.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	if s.cacheEnabled() {
		_ = cache.SetJSON(ctx, s.cache, cache.DealsListKey, deals, dealsCacheTTL)
	}

	return deals, nil
}

// UpdateDealExpiry updates the expiry date of an existing deal and returns the
// updated record. database.ErrDealNotFound is passed through for unknown ids.
func (s *Service) UpdateDealExpiry(ctx context.Context, id string, req models.UpdateDealExpiryRequest) (models.Deal, error) {
	if err := validation.ValidateUUID(id, "id"); err != nil {
		return models.Deal{}, err
	}

	if err := validation.ValidateExpiryUpdate(req); err != nil {
		return models.Deal{}, err
	}

	deal, err := s.db.UpdateDealExpiry(ctx, id, req.ExpiryDate.UTC().Truncate(time.Second))
	if err != nil {
		return models.Deal{}, err
	}

	s.invalidateDealsCache(ctx)

	if s.events != nil {
		s.events.PublishDealExpiryUpdated(ctx, deal)
	}

	return deal, nil
}

// GetDailyStats returns the persisted stats for the calendar day containing
// date. It only reads what the aggregation engine has written; days without a
// completed run return an empty list.
func (s *Service) GetDailyStats(ctx context.Context, date time.Time) (models.DailyStatsResponse, error) {
	window, err := stats.DayWindowFor(date, s.loc)
	if err != nil {
		return models.DailyStatsResponse{}, err
	}

	key := cache.DailyStatsKey(window.DateKey())

	if s.cacheEnabled() {
		var cached models.DailyStatsResponse
		if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := s.db.ListDailyStats(ctx, window.Start)
	if err != nil {
		return models.DailyStatsResponse{}, fmt.Errorf("failed to get daily stats: %w", err)
	}

	response := models.DailyStatsResponse{
		Date:  window.DateKey(),
		Stats: rows,
	}

	if s.cacheEnabled() {
		_ = cache.SetJSON(ctx, s.cache, key, response, statsCacheTTL)
	}

	return response, nil
}

// GetCustomerStats returns every daily stat row recorded for one customer,
// oldest day first.
func (s *Service) GetCustomerStats(ctx context.Context, org string) ([]models.DailyCustomerStat, error) {
	if err := validation.ValidateOrganisationNumber(org); err != nil {
		return nil, err
	}

	rows, err := s.db.ListStatsByCustomer(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer stats: %w", err)
	}

	return rows, nil
}

func (s *Service) cacheEnabled() bool {
	if s.cache == nil {
		return false
	}
	if s.features != nil && !s.features.IsEnabled(features.FeatureCacheEnabled) {
		return false
	}
	return true
}

func (s *Service) invalidateDealsCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.DealsListKey)
	}
}
