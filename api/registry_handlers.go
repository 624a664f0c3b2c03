package api

import (
	"encoding/json"
	"net/http"

	models "concept-insight/database/models_pkg"
)

// stocksImportRequest is the payload of the registry import: the canonical
// stock list from the upstream registry feed.
type stocksImportRequest struct {
	Stocks []struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Industry string `json:"industry"`
		Active   *bool  `json:"is_active"`
	} `json:"stocks"`
}

// membershipsImportRequest assigns stocks to concepts by concept name.
// Concepts that do not exist yet are created.
type membershipsImportRequest struct {
	Memberships []struct {
		StockCode string   `json:"stock_code"`
		Concept   string   `json:"concept"`
		Category  string   `json:"category"`
		Weight    *float64 `json:"weight"`
	} `json:"memberships"`
}

func (s *Server) handleImportStocks(w http.ResponseWriter, r *http.Request) {
	var req stocksImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if len(req.Stocks) == 0 {
		respondWithError(w, http.StatusBadRequest, "stocks must not be empty", nil)
		return
	}

	stocks := make([]models.Stock, 0, len(req.Stocks))
	for _, row := range req.Stocks {
		if row.Code == "" {
			respondWithError(w, http.StatusBadRequest, "stock with empty code", nil)
			return
		}
		active := true
		if row.Active != nil {
			active = *row.Active
		}
		stocks = append(stocks, models.Stock{
			Code:     row.Code,
			Name:     row.Name,
			Industry: row.Industry,
			IsActive: active,
		})
	}

	if err := s.registryRepo.UpsertStocks(r.Context(), stocks); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to upsert stocks", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"imported": len(stocks)})
}

func (s *Server) handleImportMemberships(w http.ResponseWriter, r *http.Request) {
	var req membershipsImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if len(req.Memberships) == 0 {
		respondWithError(w, http.StatusBadRequest, "memberships must not be empty", nil)
		return
	}

	// Create any concepts named for the first time, then resolve name -> id
	conceptByName := make(map[string]models.Concept)
	for _, row := range req.Memberships {
		if row.StockCode == "" || row.Concept == "" {
			respondWithError(w, http.StatusBadRequest, "membership with empty stock_code or concept", nil)
			return
		}
		if _, ok := conceptByName[row.Concept]; !ok {
			conceptByName[row.Concept] = models.Concept{
				Name:     row.Concept,
				Category: row.Category,
				IsActive: true,
			}
		}
	}
	concepts := make([]models.Concept, 0, len(conceptByName))
	for _, c := range conceptByName {
		concepts = append(concepts, c)
	}
	if err := s.registryRepo.UpsertConcepts(r.Context(), concepts); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to upsert concepts", err)
		return
	}

	idByName := make(map[string]int64, len(conceptByName))
	for name := range conceptByName {
		concept, err := s.registryRepo.GetConceptByName(r.Context(), name)
		if err != nil || concept == nil {
			respondWithError(w, http.StatusInternalServerError, "failed to resolve concept "+name, err)
			return
		}
		idByName[name] = concept.ID
	}

	memberships := make([]models.StockConceptMembership, 0, len(req.Memberships))
	for _, row := range req.Memberships {
		memberships = append(memberships, models.StockConceptMembership{
			StockCode: row.StockCode,
			ConceptID: idByName[row.Concept],
			Weight:    row.Weight,
			IsActive:  true,
		})
	}

	if err := s.registryRepo.UpsertMemberships(r.Context(), memberships); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to upsert memberships", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"imported": len(memberships),
		"concepts": len(concepts),
	})
}
