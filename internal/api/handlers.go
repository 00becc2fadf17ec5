package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"cryptoSignalDash/internal/app"
	"cryptoSignalDash/internal/chart"
	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/ports"
)

// AnalysisService is the surface the HTTP layer needs from the application
// service.
type AnalysisService interface {
	Analyze(ctx context.Context, asset string) (*app.AnalysisResult, error)
	History(ctx context.Context) []*domain.Prediction
	Replay(ctx context.Context, id string) (*app.AnalysisResult, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Candles() chart.SeriesSnapshot
	Assets() []string
}

// VerificationSource exposes the most recent verification pass results.
type VerificationSource interface {
	LatestBatch() []domain.VerifiedPrediction
}

// Handlers holds the HTTP endpoint handlers and their dependencies.
type Handlers struct {
	logger        ports.Logger
	service       AnalysisService
	verifications VerificationSource
}

// NewHandlers creates a handlers instance.
func NewHandlers(logger ports.Logger, service AnalysisService, verifications VerificationSource) *Handlers {
	return &Handlers{
		logger:        logger,
		service:       service,
		verifications: verifications,
	}
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type analyzeRequest struct {
	Asset string `json:"asset"`
}

// Analyze handles POST /api/analyze.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", "Request body must be JSON with an \"asset\" field")
		return
	}
	asset := strings.ToLower(strings.TrimSpace(req.Asset))
	if asset == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_asset", "Field \"asset\" is required")
		return
	}

	result, err := h.service.Analyze(r.Context(), asset)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrUnknownAsset):
			h.writeError(w, r, http.StatusBadRequest, "unknown_asset", "Asset is not configured: "+asset)
		default:
			h.writeError(w, r, http.StatusBadGateway, "analysis_failed", "Analysis request failed, try again later")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Predictions handles GET /api/predictions.
func (h *Handlers) Predictions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.History(r.Context()))
}

// DeletePrediction handles DELETE /api/predictions/{id}.
func (h *Handlers) DeletePrediction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "prediction_not_found", "No prediction with id "+id)
			return
		}
		h.logger.Error(r.Context(), err, "Failed to delete prediction", map[string]interface{}{"id": id})
		h.writeError(w, r, http.StatusInternalServerError, "delete_failed", "Failed to delete prediction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPredictions handles DELETE /api/predictions.
func (h *Handlers) ClearPredictions(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		h.logger.Error(r.Context(), err, "Failed to clear predictions", nil)
		h.writeError(w, r, http.StatusInternalServerError, "clear_failed", "Failed to clear predictions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Replay handles POST /api/predictions/{id}/replay.
func (h *Handlers) Replay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, err := h.service.Replay(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "prediction_not_found", "No prediction with id "+id)
			return
		}
		h.logger.Error(r.Context(), err, "Failed to replay prediction", map[string]interface{}{"id": id})
		h.writeError(w, r, http.StatusInternalServerError, "replay_failed", "Failed to replay prediction")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Candles handles GET /api/candles.
func (h *Handlers) Candles(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Candles())
}

// Verifications handles GET /api/verifications.
func (h *Handlers) Verifications(w http.ResponseWriter, r *http.Request) {
	batch := h.verifications.LatestBatch()
	if batch == nil {
		batch = []domain.VerifiedPrediction{}
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// Assets handles GET /api/assets.
func (h *Handlers) Assets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Assets())
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}
	h.writeJSON(w, status, errorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}
