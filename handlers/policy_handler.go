package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/keycloak-gateway/authz"
	"github.com/upb/keycloak-gateway/middleware"
	"github.com/upb/keycloak-gateway/utils"
	"go.uber.org/zap"
)

// CreateRuleRequest represents a request to install a route policy rule
type CreateRuleRequest struct {
	Prefix string   `json:"prefix" validate:"required,startswith=/"`
	Roles  []string `json:"roles" validate:"required,min=1,dive,required"`
}

// RuleResponse represents a route policy rule in API responses
type RuleResponse struct {
	Prefix string   `json:"prefix"`
	Roles  []string `json:"roles"`
}

// PolicyListResponse represents the current rule set plus lookup stats
type PolicyListResponse struct {
	Rules  []RuleResponse `json:"rules"`
	Hits   uint64         `json:"hits"`
	Misses uint64         `json:"misses"`
}

// PolicyHandler manages the live route policy store
type PolicyHandler struct {
	store  *authz.PolicyStore
	logger *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(store *authz.PolicyStore, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{store: store, logger: logger}
}

// HandleListRules handles GET /api/v1/admin/policy
func (h *PolicyHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.store.Rules()
	responses := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		responses = append(responses, RuleResponse{Prefix: rule.Prefix, Roles: rule.Roles})
	}

	hits, misses := h.store.Stats()
	_ = utils.WriteOK(w, PolicyListResponse{
		Rules:  responses,
		Hits:   hits,
		Misses: misses,
	})
}

// HandleCreateRule handles POST /api/v1/admin/policy. An existing rule for
// the same prefix is replaced.
func (h *PolicyHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	h.store.Set(authz.Rule{Prefix: req.Prefix, Roles: req.Roles})

	h.logger.Info("route policy rule installed",
		zap.String("request_id", requestID),
		zap.String("prefix", req.Prefix),
		zap.Strings("roles", req.Roles))

	_ = utils.WriteCreated(w, RuleResponse{Prefix: req.Prefix, Roles: req.Roles})
}
