package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	models "concept-insight/database/models_pkg"
)

type fakeTradingStore struct {
	count      int64
	countErr   error
	purged     []string
	purgeCount int64
	purgeErr   error
}

func (f *fakeTradingStore) ReplaceForDate(ctx context.Context, date time.Time, records []models.TradingRecord) error {
	return nil
}

func (f *fakeTradingStore) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeTradingStore) DistinctDates(ctx context.Context) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeTradingStore) PurgeForDate(ctx context.Context, date time.Time) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	f.purged = append(f.purged, date.Format(models.DateLayout))
	return f.purgeCount, nil
}

func deleteRequest(date string) *http.Request {
	return httptest.NewRequest(http.MethodDelete, "/api/trading/records?date="+date, nil)
}

func TestHandleDeleteTradingDate(t *testing.T) {
	trading := &fakeTradingStore{count: 3, purgeCount: 3}
	server := &Server{tradingRepo: trading}

	rec := httptest.NewRecorder()
	server.handleDeleteTradingDate(rec, deleteRequest("2025-09-02"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Source and derived rows are removed through the one transactional
	// purge call, never through separate deletes
	if len(trading.purged) != 1 || trading.purged[0] != "2025-09-02" {
		t.Fatalf("expected exactly one purge of 2025-09-02, got %v", trading.purged)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body["trading_date"] != "2025-09-02" {
		t.Errorf("trading_date: got %v", body["trading_date"])
	}
	if body["deleted_records"] != float64(3) {
		t.Errorf("deleted_records: expected 3, got %v", body["deleted_records"])
	}
}

func TestHandleDeleteTradingDateUnknownDate(t *testing.T) {
	trading := &fakeTradingStore{count: 0}
	server := &Server{tradingRepo: trading}

	rec := httptest.NewRecorder()
	server.handleDeleteTradingDate(rec, deleteRequest("2025-09-02"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(trading.purged) != 0 {
		t.Error("a date without records must not be purged")
	}
}

func TestHandleDeleteTradingDateBadDate(t *testing.T) {
	server := &Server{tradingRepo: &fakeTradingStore{}}

	rec := httptest.NewRecorder()
	server.handleDeleteTradingDate(rec, deleteRequest("02-09-2025"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDeleteTradingDatePurgeFailure(t *testing.T) {
	trading := &fakeTradingStore{count: 3, purgeErr: errors.New("connection reset")}
	server := &Server{tradingRepo: trading}

	rec := httptest.NewRecorder()
	server.handleDeleteTradingDate(rec, deleteRequest("2025-09-02"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(trading.purged) != 0 {
		t.Error("a failed purge must report nothing as removed")
	}
}

func TestHandleHealthReportsBulkIngest(t *testing.T) {
	server := &Server{} // no bulk pool configured

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: got %q", body["status"])
	}
	if body["bulk_ingest"] != "disabled" {
		t.Errorf("bulk_ingest: expected disabled without a pool, got %q", body["bulk_ingest"])
	}
}
