package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/keycloak-gateway/keycloak"
	"github.com/upb/keycloak-gateway/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	baseURL string
	realm   string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(baseURL, realm string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseURL: baseURL,
		realm:   realm,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that the realm's discovery document is reachable
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkKeycloak(ctx); err != nil {
		h.logger.Warn("keycloak health check failed", zap.Error(err))
		checks["keycloak"] = "unhealthy"
		allHealthy = false
	} else {
		checks["keycloak"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkKeycloak fetches the realm's discovery document
func (h *HealthHandler) checkKeycloak(ctx context.Context) error {
	if h.realm == "" {
		return nil // No realm configured
	}

	doc, err := keycloak.Discover(ctx, nil, h.baseURL, h.realm)
	if err != nil {
		return err
	}

	// A reachable realm always names its issuer
	if doc.Issuer == "" {
		return keycloak.ErrDiscoveryFailed
	}

	return nil
}
