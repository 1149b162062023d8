package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/api/respond"
	"github.com/ciclismopt/assist/internal/cache"
)

// GetRoutes returns the navigation routes the assistant can target, with
// their aliases. Clients use it to validate deep links before dispatching
// navigation actions.
// @Summary Get known navigation routes
// @Description Returns canonical routes with accepted aliases. Cached with ETag support.
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /assist/routes [get]
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "routes"
	ttl := cache.TTLRoutes

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	data, err := json.Marshal(action.KnownRoutes())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Could not encode routes")
		return
	}

	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

// GetUpcomingRaces returns the next races with their transfer deadlines.
// @Summary Get upcoming races
// @Description Returns the upcoming race calendar with transfer deadlines. Cached with ETag support.
// @Tags catalog
// @Produce json
// @Param limit query int false "Maximum races to return (default 5)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /assist/races [get]
func (h *Handler) GetUpcomingRaces(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	cacheKey := "races:" + strconv.Itoa(limit)
	ttl := cache.TTLRaces

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	rows, err := h.pool.Query(r.Context(), "upcoming_races", limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load races")
		return
	}
	defer rows.Close()

	type racePayload struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		StartsAt         string `json:"starts_at"`
		TransferDeadline string `json:"transfer_deadline"`
	}
	var races []racePayload
	for rows.Next() {
		var rp racePayload
		var starts, deadline time.Time
		if err := rows.Scan(&rp.ID, &rp.Name, &starts, &deadline); err != nil {
			respond.WriteError(w, http.StatusInternalServerError, "SCAN_FAILED", "Could not read races")
			return
		}
		rp.StartsAt = starts.UTC().Format(time.RFC3339)
		rp.TransferDeadline = deadline.UTC().Format(time.RFC3339)
		races = append(races, rp)
	}
	if len(races) == 0 {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "No upcoming races")
		return
	}

	data, err := json.Marshal(map[string]interface{}{"races": races})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Could not encode races")
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}
