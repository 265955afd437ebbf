package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockpile/internal/inventory/repository"
	"stockpile/internal/inventory/service"
	"stockpile/internal/inventory/validator"
	"stockpile/pkg/config"
	"stockpile/pkg/logger"
	"stockpile/pkg/model"

	"github.com/julienschmidt/httprouter"
)

func newTestRouter(t *testing.T) (*httprouter.Router, service.ReservationManager) {
	t.Helper()

	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		Log:            log,
		ReservationTTL: 15 * time.Minute,
		ReserveRetries: 3,
		SweepBatchSize: 500,
		MaxBatchItems:  50,
		MaxStayNights:  30,
	}

	store := repository.NewMemoryStore()
	manager := service.NewReservationManager(
		store,
		store,
		store,
		validator.NewInventoryValidator(log, cfg.MaxBatchItems, cfg.MaxStayNights),
		nil,
		cfg,
	)

	router := httprouter.New()
	NewInventoryHandler(manager, log).RegisterRoutes(router)
	return router, manager
}

func doJSON(t *testing.T, router *httprouter.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedCapacity(t *testing.T, router *httprouter.Router, productID string, total int64) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPut, "/api/v1/capacity", model.UpsertCapacityRequest{
		ProductID:     productID,
		TotalCapacity: total,
		TrackCapacity: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("seed capacity: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func decodeReserveResult(t *testing.T, rec *httptest.ResponseRecorder) model.ReserveResult {
	t.Helper()
	var envelope struct {
		Data model.ReserveResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode reserve result: %v", err)
	}
	return envelope.Data
}

func TestReserveEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	seedCapacity(t, router, "P1", 10)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reservations", model.ReserveRequest{
		HolderID: "order-1",
		Items:    []model.ReserveItem{{ProductID: "P1", Quantity: 4}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeReserveResult(t, rec)
	if !result.Success || result.ReservationID == "" {
		t.Fatalf("expected successful result with id, got %+v", result)
	}

	// A shortfall answers 409 with the failure detail in the body.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/reservations", model.ReserveRequest{
		HolderID: "order-2",
		Items:    []model.ReserveItem{{ProductID: "P1", Quantity: 7}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	conflict := decodeReserveResult(t, rec)
	if conflict.Success || len(conflict.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", conflict)
	}
	if conflict.Failures[0].Available != 6 {
		t.Errorf("expected available=6 in failure, got %d", conflict.Failures[0].Available)
	}
}

func TestReserveEndpoint_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/reservations", model.ReserveRequest{
		HolderID: "order-1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty items: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReleaseAndConfirmEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	seedCapacity(t, router, "P1", 10)

	reserve := func() model.ReserveResult {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/reservations", model.ReserveRequest{
			HolderID: "order-1",
			Items:    []model.ReserveItem{{ProductID: "P1", Quantity: 2}},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("reserve: status %d", rec.Code)
		}
		return decodeReserveResult(t, rec)
	}

	released := reserve()
	rec := doJSON(t, router, http.MethodDelete, "/api/v1/reservations/"+released.ReservationID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("release: expected 204, got %d", rec.Code)
	}
	// Release is idempotent, including for ids that never existed.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/reservations/never-existed", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("release unknown: expected 204, got %d", rec.Code)
	}

	confirmed := reserve()
	rec = doJSON(t, router, http.MethodPost, "/api/v1/reservations/"+confirmed.ReservationID+"/confirm", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("confirm: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/reservations/"+confirmed.ReservationID+"/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double confirm: expected 409, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/reservations/never-existed/confirm", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("confirm unknown: expected 404, got %d", rec.Code)
	}
}

func TestStockStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	seedCapacity(t, router, "P1", 10)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/product:P1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data model.StockStatus `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if envelope.Data.TotalQuantity != 10 || envelope.Data.AvailableQuantity != 10 {
		t.Errorf("unexpected status %+v", envelope.Data)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/stock/product:missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown key: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/stock/banana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed key: expected 400, got %d", rec.Code)
	}
}

func TestAdjustAndSweepEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	seedCapacity(t, router, "P1", 10)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/stock/adjust", model.AdjustStockRequest{
		ResourceKey: "product:P1",
		NewTotal:    4,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var adjusted struct {
		Data model.StockStatus `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&adjusted); err != nil {
		t.Fatalf("decode adjust: %v", err)
	}
	if adjusted.Data.TotalQuantity != 4 {
		t.Errorf("expected total=4 after adjust, got %d", adjusted.Data.TotalQuantity)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sweep", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var swept struct {
		Data model.SweepResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&swept); err != nil {
		t.Fatalf("decode sweep: %v", err)
	}
	if swept.Data.ReleasedCount != 0 {
		t.Errorf("expected empty sweep, got %d", swept.Data.ReleasedCount)
	}
}
