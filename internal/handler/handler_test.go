package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deal-stats-api/internal/database"
	"deal-stats-api/internal/models"
	"deal-stats-api/internal/service"
	"deal-stats-api/internal/stats"
)

func setupTestHandler(t *testing.T) (*Handler, *database.DB, func()) {
	dbPath := "./test_handler_" + uuid.New().String() + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	svc := service.NewServiceWithOptions(db, service.ServiceOptions{Location: time.UTC})
	h := NewHandler(svc)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return h, db, cleanup
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/deals", h.ListDeals)
	r.Post("/deals", h.CreateDeal)
	r.Patch("/deals/{id}/expiry", h.UpdateDealExpiry)
	r.Get("/stats/daily", h.GetDailyStats)
	r.Get("/customers/{customer_organisation_number}/stats", h.GetCustomerStats)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

func TestHealthCheck(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestCreateDeal_Success(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(models.CreateDealRequest{
		SellerID:                   "seller-1",
		CustomerOrganisationNumber: "CUST-1",
		Price:                      150.25,
		ExpiryDate:                 time.Now().UTC().AddDate(0, 0, 7),
	})

	req := httptest.NewRequest("POST", "/deals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var deal models.Deal
	if err := json.Unmarshal(rr.Body.Bytes(), &deal); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if deal.ID == "" {
		t.Error("Expected the server to assign an id")
	}
	if deal.CreationDate.IsZero() {
		t.Error("Expected the server to assign a creation date")
	}
	if deal.Price != 150.25 {
		t.Errorf("Expected price 150.25, got %v", deal.Price)
	}
}

func TestCreateDeal_InvalidJSON(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("POST", "/deals", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestCreateDeal_EmptyBody(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("POST", "/deals", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestCreateDeal_MissingSellerID(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(models.CreateDealRequest{
		CustomerOrganisationNumber: "CUST-1",
		Price:                      10,
		ExpiryDate:                 time.Now().UTC().AddDate(0, 0, 7),
	})

	req := httptest.NewRequest("POST", "/deals", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}

	var errResp models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("Expected an error message in the response")
	}
}

func TestListDeals_Empty(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/deals", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "[]\n" {
		t.Errorf("Expected an empty JSON array, got %s", rr.Body.String())
	}
}

func TestUpdateDealExpiry_Success(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	createBody, _ := json.Marshal(models.CreateDealRequest{
		SellerID:                   "seller-1",
		CustomerOrganisationNumber: "CUST-1",
		Price:                      10,
		ExpiryDate:                 time.Now().UTC().AddDate(0, 0, 7),
	})
	createReq := httptest.NewRequest("POST", "/deals", bytes.NewReader(createBody))
	createRR := httptest.NewRecorder()
	r.ServeHTTP(createRR, createReq)
	if createRR.Code != http.StatusCreated {
		t.Fatalf("Failed to create deal: %d", createRR.Code)
	}

	var created models.Deal
	if err := json.Unmarshal(createRR.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode created deal: %v", err)
	}

	newExpiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	patchBody, _ := json.Marshal(models.UpdateDealExpiryRequest{ExpiryDate: newExpiry})

	req := httptest.NewRequest("PATCH", "/deals/"+created.ID+"/expiry", bytes.NewReader(patchBody))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var updated models.Deal
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to decode updated deal: %v", err)
	}
	if !updated.ExpiryDate.Equal(newExpiry) {
		t.Errorf("Expected expiry %v, got %v", newExpiry, updated.ExpiryDate)
	}
	if !updated.CreationDate.Equal(created.CreationDate) {
		t.Errorf("Expected creation date unchanged, got %v", updated.CreationDate)
	}
}

func TestUpdateDealExpiry_NotFound(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(models.UpdateDealExpiryRequest{
		ExpiryDate: time.Now().UTC().AddDate(0, 0, 7),
	})

	req := httptest.NewRequest("PATCH", "/deals/"+uuid.New().String()+"/expiry", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestUpdateDealExpiry_InvalidID(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(models.UpdateDealExpiryRequest{
		ExpiryDate: time.Now().UTC().AddDate(0, 0, 7),
	})

	req := httptest.NewRequest("PATCH", "/deals/not-a-uuid/expiry", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestGetDailyStats_ReturnsComputedStats(t *testing.T) {
	h, db, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	now := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	deal := models.Deal{
		ID:                         uuid.New().String(),
		SellerID:                   "seller-1",
		CustomerOrganisationNumber: "CUST-1",
		Price:                      75,
		CreationDate:               now,
		ExpiryDate:                 now.AddDate(0, 0, 7),
	}
	if err := db.InsertDeal(context.Background(), deal); err != nil {
		t.Fatalf("Failed to insert deal: %v", err)
	}

	engine := stats.NewEngineWithOptions(db, stats.EngineOptions{Location: time.UTC})
	if _, err := engine.Run(context.Background(), now); err != nil {
		t.Fatalf("Engine run failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/stats/daily?date=2025-10-21", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response models.DailyStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Date != "2025-10-21" {
		t.Errorf("Expected date 2025-10-21, got %s", response.Date)
	}
	if len(response.Stats) != 1 {
		t.Fatalf("Expected 1 stat row, got %d", len(response.Stats))
	}
	if response.Stats[0].TotalDeals != 1 || response.Stats[0].TotalPrice != 75 {
		t.Errorf("Expected totals (1, 75), got (%d, %v)",
			response.Stats[0].TotalDeals, response.Stats[0].TotalPrice)
	}
}

func TestGetCustomerStats_ReturnsHistory(t *testing.T) {
	h, db, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	now := time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC)
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		deal := models.Deal{
			ID:                         uuid.New().String(),
			SellerID:                   "seller-1",
			CustomerOrganisationNumber: "CUST-1",
			Price:                      30,
			CreationDate:               day,
			ExpiryDate:                 day.AddDate(0, 0, 7),
		}
		if err := db.InsertDeal(context.Background(), deal); err != nil {
			t.Fatalf("Failed to insert deal: %v", err)
		}
	}

	engine := stats.NewEngineWithOptions(db, stats.EngineOptions{Location: time.UTC})
	if _, err := engine.Run(context.Background(), now.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("Engine run failed: %v", err)
	}
	if _, err := engine.Run(context.Background(), now); err != nil {
		t.Fatalf("Engine run failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/customers/CUST-1/stats", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var rows []models.DailyCustomerStat
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 stat rows, got %d", len(rows))
	}
	if !rows[0].Date.Before(rows[1].Date) {
		t.Errorf("Expected rows sorted oldest first, got %v then %v", rows[0].Date, rows[1].Date)
	}
}

func TestGetDailyStats_InvalidDate(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/stats/daily?date=21-10-2025", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestGetDailyStats_EmptyDay(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/stats/daily?date=1999-01-01", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response models.DailyStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Stats) != 0 {
		t.Errorf("Expected no stats for an idle day, got %d", len(response.Stats))
	}
}
