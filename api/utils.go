package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	models "concept-insight/database/models_pkg"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("API encode error: %v", err)
	}
}

// respondWithError logs the error and sends a JSON error response.
// Use this to avoid exposing internal errors while still logging them.
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Printf("API Error [%d]: %s - %v", code, message, err)
	} else {
		log.Printf("API Error [%d]: %s", code, message)
	}
	respondJSON(w, code, map[string]string{"error": message})
}

// getIntParam retrieves an integer query parameter with default value
func getIntParam(r *http.Request, key string, defaultVal int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}

// getDateParam parses a required YYYY-MM-DD query parameter
func getDateParam(r *http.Request, key string) (time.Time, bool) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return time.Time{}, false
	}
	date, err := time.Parse(models.DateLayout, valStr)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
