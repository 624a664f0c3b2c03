package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	models "concept-insight/database/models_pkg"
	"concept-insight/engine"
	"concept-insight/helpers"
)

// importRequest is the payload of the import trigger: one trading date's
// already-parsed volume tuples, extracted from an upload by the (external)
// file-handling layer.
type importRequest struct {
	TradingDate string `json:"trading_date"`
	Records     []struct {
		StockCode string `json:"stock_code"`
		Volume    int64  `json:"volume"`
	} `json:"records"`
}

// rangeRequest selects the dates of a bulk recompute
type rangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// handleImport replaces one date's trading records and recomputes the date.
// Re-importing an already-loaded date is the supported correction path: the
// new batch fully replaces the old one, and the derived tables follow.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	date, err := time.Parse(models.DateLayout, req.TradingDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "trading_date must be YYYY-MM-DD", err)
		return
	}
	if len(req.Records) == 0 {
		respondWithError(w, http.StatusBadRequest, "records must not be empty", nil)
		return
	}

	records := make([]models.TradingRecord, 0, len(req.Records))
	var totalVolume int64
	for _, row := range req.Records {
		if row.StockCode == "" {
			respondWithError(w, http.StatusBadRequest, "record with empty stock_code", nil)
			return
		}
		if row.Volume < 0 {
			respondWithError(w, http.StatusBadRequest, "volume must be non-negative for "+row.StockCode, nil)
			return
		}
		records = append(records, models.TradingRecord{
			StockCode:   row.StockCode,
			TradingDate: date,
			Volume:      row.Volume,
		})
		totalVolume += row.Volume
	}

	if err := s.tradingRepo.ReplaceForDate(r.Context(), date, records); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to store trading records", err)
		return
	}
	log.Printf("📦 %s: stored %d trading records, %s shares (%s)",
		req.TradingDate, len(records), helpers.FormatVolume(totalVolume), helpers.HumanizeVolume(totalVolume))

	s.runRecompute(r.Context(), w, date)
}

// handleRecalculate forces a re-run of an already-loaded date
func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	s.runRecompute(r.Context(), w, date)
}

// runRecompute drives the orchestrator for one date and maps the engine's
// error taxonomy onto HTTP status codes
func (s *Server) runRecompute(ctx context.Context, w http.ResponseWriter, date time.Time) {
	stats, err := s.orchestrator.Run(ctx, date)
	if err != nil {
		var noData *engine.NoSourceDataError
		var concurrent *engine.ConcurrentRecomputeError
		switch {
		case errors.As(err, &noData):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error(), nil)
		case errors.As(err, &concurrent):
			respondWithError(w, http.StatusConflict, err.Error(), nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "recompute failed", err)
		}
		return
	}

	if s.redis != nil {
		// Best effort cache of the latest stats for dashboard polling
		_ = s.redis.Set(ctx, "recompute:stats:"+stats.TradingDate, stats, 1*time.Hour)
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleRecalculateRange recomputes every loaded trading date inside an
// inclusive date range, sequentially in ascending order unless
// ENGINE_BULK_WORKERS raises the parallelism. Dates that fail report their
// error in their own slot without aborting siblings.
func (s *Server) handleRecalculateRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD", err)
		return
	}
	if end.Before(start) {
		respondWithError(w, http.StatusBadRequest, "end_date before start_date", nil)
		return
	}

	loaded, err := s.tradingRepo.DistinctDates(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list trading dates", err)
		return
	}

	var dates []time.Time
	for _, d := range loaded {
		if !d.Before(start) && !d.After(end) {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		respondWithError(w, http.StatusUnprocessableEntity, "no loaded trading dates in range", nil)
		return
	}

	results := s.orchestrator.RunRange(r.Context(), dates, s.engineCfg.BulkWorkers)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date_count": len(results),
		"results":    results,
	})
}

func (s *Server) handleGetConcepts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	concepts, err := s.registryRepo.GetConcepts(r.Context(), category, true)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load concepts", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(concepts),
		"data":  concepts,
	})
}

func (s *Server) handleGetSummaries(w http.ResponseWriter, r *http.Request) {
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	limit := getIntParam(r, "limit", 100)

	summaries, err := s.derivedRepo.GetSummaries(r.Context(), date, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load summaries", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trading_date": date.Format(models.DateLayout),
		"total":        len(summaries),
		"data":         summaries,
	})
}

func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	conceptID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid concept id", err)
		return
	}
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	limit := getIntParam(r, "limit", 0)

	rankings, err := s.derivedRepo.GetRankings(r.Context(), conceptID, date, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load rankings", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"concept_id":   conceptID,
		"trading_date": date.Format(models.DateLayout),
		"total":        len(rankings),
		"data":         rankings,
	})
}

func (s *Server) handleGetConceptHistory(w http.ResponseWriter, r *http.Request) {
	conceptID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid concept id", err)
		return
	}

	until := time.Now()
	if date, ok := getDateParam(r, "date"); ok {
		until = date
	}
	limit := getIntParam(r, "limit", 30)

	history, err := s.derivedRepo.GetConceptHistory(r.Context(), conceptID, until, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"concept_id": conceptID,
		"total":      len(history),
		"data":       history,
	})
}

func (s *Server) handleGetHighs(w http.ResponseWriter, r *http.Request) {
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	newOnly := r.URL.Query().Get("new_only") == "true"

	highs, err := s.derivedRepo.GetHighs(r.Context(), date, newOnly)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load high records", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trading_date": date.Format(models.DateLayout),
		"total":        len(highs),
		"data":         highs,
	})
}

// handleDeleteTradingDate withdraws a trading date entirely. Source records
// and derived rows go in one repository transaction: a failure there leaves
// everything in place, never derived rows without their inputs.
func (s *Server) handleDeleteTradingDate(w http.ResponseWriter, r *http.Request) {
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	day := date.Format(models.DateLayout)

	count, err := s.tradingRepo.CountForDate(r.Context(), date)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to count trading records", err)
		return
	}
	if count == 0 {
		respondWithError(w, http.StatusNotFound, "no trading records for "+day, nil)
		return
	}

	deleted, err := s.tradingRepo.PurgeForDate(r.Context(), date)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to purge trading date", err)
		return
	}
	if s.redis != nil {
		_ = s.redis.Delete(r.Context(), "recompute:stats:"+day)
	}

	log.Printf("🗑️  %s: removed %d trading records and derived rows", day, deleted)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trading_date":    day,
		"deleted_records": deleted,
	})
}

// handleGetRecomputeStats serves the cached statistics of a date's last
// committed recompute. Cache only; an expired or missing entry is a 404 and
// the caller re-triggers a recalculate if it needs fresh numbers.
func (s *Server) handleGetRecomputeStats(w http.ResponseWriter, r *http.Request) {
	date, ok := getDateParam(r, "date")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
		return
	}
	if s.redis == nil {
		respondWithError(w, http.StatusNotFound, "stats cache unavailable", nil)
		return
	}

	var stats engine.Stats
	key := "recompute:stats:" + date.Format(models.DateLayout)
	if err := s.redis.Get(r.Context(), key, &stats); err != nil {
		respondWithError(w, http.StatusNotFound, "no cached stats for date", nil)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTradingDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.tradingRepo.DistinctDates(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list trading dates", err)
		return
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format(models.DateLayout))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(formatted),
		"data":  formatted,
	})
}
