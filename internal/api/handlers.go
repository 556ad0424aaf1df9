package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"fleet-telemetry/internal/risk"
	"fleet-telemetry/internal/storage"
)

// defaultWindow is the latest-readings limit applied when the caller
// omits the limit query parameter.
const defaultWindow = 5

// Handler serves the telemetry API backed by a reading store.
type Handler struct {
	store  storage.ReadingStore
	health storage.HealthChecker
	logger zerolog.Logger
}

// NewHandler wires the store into the HTTP handlers.
func NewHandler(store storage.ReadingStore, health storage.HealthChecker, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		health: health,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

type ingestRequest struct {
	AssetID      string  `json:"asset_id"`
	TemperatureC float64 `json:"temperature_c"`
	VibrationRMS float64 `json:"vibration_rms"`
	PressurePSI  float64 `json:"pressure_psi"`
}

type ingestResponse struct {
	ID         int64     `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type latestResponse struct {
	AssetID         string            `json:"asset_id"`
	WindowRequested int               `json:"window_requested"`
	WindowUsed      int               `json:"window_used"`
	Count           int               `json:"count"`
	Readings        []storage.Reading `json:"readings"`
	Risk            *risk.Assessment  `json:"risk"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleIngest stores one reading. Each call is an independent
// transaction: the reading is either fully stored or not stored at all.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	stored, err := h.store.InsertReading(r.Context(), storage.NewReading{
		AssetID:      req.AssetID,
		TemperatureC: req.TemperatureC,
		VibrationRMS: req.VibrationRMS,
		PressurePSI:  req.PressurePSI,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("asset_id", req.AssetID).Msg("failed to insert reading")
		writeError(w, http.StatusInternalServerError, "db_insert_failed")
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{ID: stored.ID, RecordedAt: stored.RecordedAt})
}

// HandleLatest returns up to limit most-recent readings for an asset and
// a risk assessment computed over exactly the readings returned.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	assetID := r.URL.Query().Get("asset_id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	limit := defaultWindow
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	if limit < storage.MinWindow || limit > storage.MaxWindow {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("limit must be between %d and %d", storage.MinWindow, storage.MaxWindow))
		return
	}

	readings, err := h.store.ListLatestReadings(r.Context(), assetID, limit)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("asset_id", assetID).Msg("failed to list latest readings")
		writeError(w, http.StatusInternalServerError, "db_read_failed")
		return
	}

	writeJSON(w, http.StatusOK, latestResponse{
		AssetID:         assetID,
		WindowRequested: limit,
		WindowUsed:      len(readings),
		Count:           len(readings),
		Readings:        readings,
		Risk:            risk.Evaluate(readings),
	})
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	TS     string `json:"ts"`
	Error  string `json:"error,omitempty"`
}

// HandleHealth reports API and database connectivity. A degraded
// database still answers 200 so load balancers can distinguish the API
// being up from the store being reachable.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		DB:     "ok",
		TS:     time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.health.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.DB = "unreachable"
		resp.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
