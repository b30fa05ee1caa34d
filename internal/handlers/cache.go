package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"result-cache/internal/cache"
	"result-cache/internal/common/logging"
)

// maxBodyBytes bounds PUT bodies.
const maxBodyBytes = 1 << 20

// CacheService is the part of *cache.Service the HTTP layer needs
type CacheService interface {
	Set(ctx context.Context, key string, data cache.Data) bool
	Get(ctx context.Context, key string) (cache.Data, bool)
	Delete(ctx context.Context, key string) bool
	Clear(ctx context.Context) bool
	Stats(ctx context.Context) cache.Stats
	Health(ctx context.Context) cache.Health
}

var _ CacheService = (*cache.Service)(nil)

type CacheHandlers struct {
	cache  CacheService
	logger logging.Logger
}

func NewCacheHandlers(svc CacheService, logger logging.Logger) *CacheHandlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &CacheHandlers{cache: svc, logger: logger}
}

// Register mounts the cache endpoints under /api/cache
func (h *CacheHandlers) Register(router *mux.Router) {
	api := router.PathPrefix("/api/cache").Subrouter()
	api.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("", h.ClearCache).Methods(http.MethodDelete)
	api.HandleFunc("/{key}", h.GetEntry).Methods(http.MethodGet)
	api.HandleFunc("/{key}", h.PutEntry).Methods(http.MethodPut)
	api.HandleFunc("/{key}", h.DeleteEntry).Methods(http.MethodDelete)
}

// GetHealth returns the cache health probe result.
// Unhealthy maps to 503 so load balancers can act on it; degraded is still 200.
func (h *CacheHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	health := h.cache.Health(r.Context())

	status := http.StatusOK
	if health.Status == cache.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, r, status, health)
}

// GetStats returns cache statistics
func (h *CacheHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats(r.Context())

	status := http.StatusOK
	if stats.Error != "" {
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, r, status, stats)
}

// GetEntry returns the cached value for {key}
func (h *CacheHandlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	data, found := h.cache.Get(r.Context(), key)
	if !found {
		http.Error(w, "Cache entry not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, r, http.StatusOK, data)
}

// PutEntry stores the JSON object in the request body under {key}
func (h *CacheHandlers) PutEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var data cache.Data
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		http.Error(w, "Request body must be a JSON object", http.StatusBadRequest)
		return
	}

	if !h.cache.Set(r.Context(), key, data) {
		http.Error(w, "Failed to store cache entry", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry removes {key}
func (h *CacheHandlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if !h.cache.Delete(r.Context(), key) {
		http.Error(w, "Cache entry not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache removes every entry in the cache namespace
func (h *CacheHandlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if !h.cache.Clear(r.Context()) {
		http.Error(w, "Failed to clear cache", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON sends v as the response body. The status line is already out by
// the time encoding can fail, so the failure is only logged.
func (h *CacheHandlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithContext(r.Context()).Debug("Failed to write response",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Err(err),
		)
	}
}
