package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"auto-trade-engine-go/internal/models"
	"auto-trade-engine-go/internal/trading"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler holds dependencies for the API endpoints.
type Handler struct {
	svc    *trading.Service
	logger *zap.Logger
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps the engine's typed errors onto HTTP statuses. State
// guards surface to the caller; nothing is folded into a bare 200.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *trading.ValidationError
		conflictErr   *trading.StateConflictError
		killErr       *trading.KillSwitchActiveError
		riskErr       *trading.RiskLimitExceededError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
	case errors.As(err, &killErr):
		status = http.StatusLocked
	case errors.As(err, &riskErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, trading.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// requireUserID pulls userId from the query string, failing the request
// when absent.
func (h *Handler) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return "", false
	}
	return userID, true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetProfile returns the user's trading profile, creating it on first access.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}
	profile, err := h.svc.GetOrCreateProfile(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies a partial configuration update.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		trading.ProfileUpdate
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	profile, err := h.svc.UpdateProfile(body.UserID, body.ProfileUpdate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// SetMode switches the user's autonomy tier.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string             `json:"user_id"`
		Mode   models.TradingMode `json:"mode"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	profile, err := h.svc.SetMode(body.UserID, body.Mode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// CreateSuggestion ingests a signal into a pending suggestion.
func (h *Handler) CreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var input trading.SuggestionInput
	if !h.decode(w, r, &input) {
		return
	}
	suggestion, err := h.svc.CreateSuggestion(input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, suggestion)
}

// ListSuggestions returns the user's suggestions, optionally filtered by status.
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}
	status := models.SuggestionStatus(r.URL.Query().Get("status"))
	suggestions, err := h.svc.ListSuggestions(userID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, suggestions)
}

// ApproveSuggestion moves a pending suggestion to approved.
func (h *Handler) ApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	suggestion, err := h.svc.ApproveSuggestion(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, suggestion)
}

// RejectSuggestion moves a pending suggestion to rejected.
func (h *Handler) RejectSuggestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for reject.
	_ = json.NewDecoder(r.Body).Decode(&body)

	suggestion, err := h.svc.RejectSuggestion(id, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, suggestion)
}

// ExecuteTrade turns an approved suggestion into an open execution.
func (h *Handler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	suggestionID := mux.Vars(r)["suggestionId"]
	var body struct {
		ExchangeConnectionID string `json:"exchange_connection_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	execution, err := h.svc.ExecuteTrade(r.Context(), suggestionID, body.ExchangeConnectionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, execution)
}

// CloseTrade closes an open execution at the given exit price.
func (h *Handler) CloseTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		ExitPrice float64 `json:"exit_price"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	execution, err := h.svc.CloseTrade(id, body.ExitPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, execution)
}

// ListTrades returns the user's executions, optionally filtered by status.
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}
	status := models.ExecutionStatus(r.URL.Query().Get("status"))
	trades, err := h.svc.ListTrades(userID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// TriggerKillSwitch halts the user's trading.
func (h *Handler) TriggerKillSwitch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" || body.Reason == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and reason are required"})
		return
	}
	profile, err := h.svc.TriggerKillSwitch(body.UserID, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// ResetKillSwitch clears the user's kill switch.
func (h *Handler) ResetKillSwitch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	profile, err := h.svc.ResetKillSwitch(body.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// GetMilestones returns the milestone rows plus the live full-auto status.
func (h *Handler) GetMilestones(w http.ResponseWriter, r *http.Request) {
	milestones, err := h.svc.GetMilestones()
	if err != nil {
		h.writeError(w, err)
		return
	}
	status, err := h.svc.CheckFullAutoMilestone()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"milestones":       milestones,
		"full_auto_status": status,
	})
}

// UnlockFullAuto grants the user the full_auto tier if the milestone is complete.
func (h *Handler) UnlockFullAuto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	profile, err := h.svc.UnlockFullAuto(body.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// RiskCheck is a dry-run evaluation of the user's risk limits.
func (h *Handler) RiskCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID       string  `json:"user_id"`
		TradeSizeUsd float64 `json:"trade_size_usd"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	result, err := h.svc.RiskCheck(body.UserID, body.TradeSizeUsd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
