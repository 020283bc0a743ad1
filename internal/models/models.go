package models

import "time"

// Deal represents a commercial transaction between a seller and a customer
// organisation.
type Deal struct {
	ID                         string    `json:"id"`                         // uuid
	SellerID                   string    `json:"sellerId"`                   // identifier of the selling party
	CustomerOrganisationNumber string    `json:"customerOrganisationNumber"` // grouping key for aggregation
	Price                      float64   `json:"price"`                      // amount, no currency conversion applied
	CreationDate               time.Time `json:"creationDate"`               // set by the server, immutable
	ExpiryDate                 time.Time `json:"expiryDate"`                 // RFC3339 timestamp
}

// DailyCustomerStat is the per-day per-customer summary produced by the
// aggregation engine. At most one record exists per (Date, customer) pair.
type DailyCustomerStat struct {
	Date                       time.Time `json:"date"` // start-of-day key, not the raw query time
	CustomerOrganisationNumber string    `json:"customerOrganisationNumber"`
	TotalDeals                 int       `json:"totalDeals"`
	TotalPrice                 float64   `json:"totalPrice"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// CustomerDealTotals is one row of the grouped totals query: deal count and
// price sum for a single customer within a window.
type CustomerDealTotals struct {
	CustomerOrganisationNumber string
	TotalDeals                 int
	TotalPrice                 float64
}

// CreateDealRequest represents the request body for creating a deal.
type CreateDealRequest struct {
	SellerID                   string    `json:"sellerId"`
	CustomerOrganisationNumber string    `json:"customerOrganisationNumber"`
	Price                      float64   `json:"price"`
	ExpiryDate                 time.Time `json:"expiryDate"`
}

// UpdateDealExpiryRequest represents the request body for updating a deal's
// expiry date.
type UpdateDealExpiryRequest struct {
	ExpiryDate time.Time `json:"expiryDate"`
}

// DailyStatsResponse is the response payload for the daily stats read surface.
type DailyStatsResponse struct {
	Date  string              `json:"date"` // YYYY-MM-DD
	Stats []DailyCustomerStat `json:"stats"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
