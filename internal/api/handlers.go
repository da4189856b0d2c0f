package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/cache"
	"github.com/sells-group/geomark/internal/feature"
	"github.com/sells-group/geomark/internal/store"
)

// Handlers holds the read-side endpoints. The cache is optional; a disabled
// cache turns every lookup into a direct store read.
type Handlers struct {
	store store.Store
	cache *cache.Cache
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListPlacemarks(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 100)
	offset := intParam(r, "offset", 0)
	folder := r.URL.Query().Get("folder")

	placemarks, err := h.store.List(r.Context(), limit, offset, folder)
	if err != nil {
		respondStoreError(w, "list placemarks", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"placemarks": emptyFeatures(placemarks),
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *Handlers) GetPlacemark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	placemark, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondStoreError(w, "get placemark", err)
		return
	}
	if placemark == nil {
		respondError(w, http.StatusNotFound, "placemark not found")
		return
	}

	respondJSON(w, http.StatusOK, placemark)
}

// QueryBBox requires all four bounds; a missing or non-numeric bound is a
// client error, not a zero default, so boxes touching the zero meridian or
// equator work.
func (h *Handlers) QueryBBox(w http.ResponseWriter, r *http.Request) {
	var bbox feature.BBox
	bounds := []struct {
		name string
		dest *float64
	}{
		{"min_lon", &bbox.MinLon},
		{"min_lat", &bbox.MinLat},
		{"max_lon", &bbox.MaxLon},
		{"max_lat", &bbox.MaxLat},
	}
	for _, b := range bounds {
		raw := r.URL.Query().Get(b.name)
		if raw == "" {
			respondError(w, http.StatusBadRequest, "missing bbox parameter "+b.name)
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid bbox parameter "+b.name)
			return
		}
		*b.dest = v
	}
	limit := intParam(r, "limit", 1000)

	placemarks, err := h.store.QueryBBox(r.Context(), bbox, limit)
	if err != nil {
		respondStoreError(w, "bbox query", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"placemarks": emptyFeatures(placemarks),
		"bbox":       bbox,
		"count":      len(placemarks),
	})
}

func (h *Handlers) Timeline(w http.ResponseWriter, r *http.Request) {
	var events []feature.TimelineEvent
	if !h.cache.GetJSON(r.Context(), cache.KeyTimeline, &events) {
		var err error
		events, err = h.store.Timeline(r.Context())
		if err != nil {
			respondStoreError(w, "timeline", err)
			return
		}
		h.cache.SetJSON(r.Context(), cache.KeyTimeline, events)
	}
	if events == nil {
		events = []feature.TimelineEvent{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	var folders []string
	if !h.cache.GetJSON(r.Context(), cache.KeyFolders, &folders) {
		var err error
		folders, err = h.store.ListFolders(r.Context())
		if err != nil {
			respondStoreError(w, "list folders", err)
			return
		}
		h.cache.SetJSON(r.Context(), cache.KeyFolders, folders)
	}
	if folders == nil {
		folders = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"folders": folders,
		"count":   len(folders),
	})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	var stats feature.Stats
	if !h.cache.GetJSON(r.Context(), cache.KeyStats, &stats) {
		loaded, err := h.store.Stats(r.Context())
		if err != nil {
			respondStoreError(w, "stats", err)
			return
		}
		stats = *loaded
		h.cache.SetJSON(r.Context(), cache.KeyStats, stats)
	}

	respondJSON(w, http.StatusOK, stats)
}

func intParam(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func emptyFeatures(fs []feature.Feature) []feature.Feature {
	if fs == nil {
		return []feature.Feature{}
	}
	return fs
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError logs the cause and returns an opaque 500; store errors
// carry SQL detail that does not belong on the wire.
func respondStoreError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op+" failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
