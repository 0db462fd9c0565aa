package trading

import (
	"fmt"
	"strings"
	"time"

	"auto-trade-engine-go/internal/models"

	"go.uber.org/zap"
)

// SuggestionInput is the signal-source payload that seeds a suggestion.
type SuggestionInput struct {
	UserID           string  `json:"user_id"`
	PredictionID     string  `json:"prediction_id,omitempty"`
	Ticker           string  `json:"ticker"`
	Chain            string  `json:"chain,omitempty"`
	Signal           string  `json:"signal"`
	Confidence       float64 `json:"confidence,omitempty"`
	SuggestedSizeUsd float64 `json:"suggested_size_usd,omitempty"`
	EntryPrice       float64 `json:"entry_price,omitempty"`
	Rationale        string  `json:"rationale,omitempty"`
	ExpiresInMinutes int     `json:"expires_in_minutes,omitempty"`
}

// CreateSuggestion records a new pending suggestion for the user. Fails
// while the user's kill switch is active.
func (s *Service) CreateSuggestion(input SuggestionInput) (*models.TradeSuggestion, error) {
	if input.UserID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}
	if input.Ticker == "" {
		return nil, &ValidationError{Msg: "ticker is required"}
	}
	if !models.ValidSignal(input.Signal) {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid signal: %s", input.Signal)}
	}

	profile, err := s.GetOrCreateProfile(input.UserID)
	if err != nil {
		return nil, err
	}
	if profile.KillSwitchActive {
		return nil, &KillSwitchActiveError{UserID: input.UserID, Reason: profile.KillSwitchReason}
	}

	ttl := time.Duration(s.cfg.SuggestionTTLMinutes) * time.Minute
	if input.ExpiresInMinutes > 0 {
		ttl = time.Duration(input.ExpiresInMinutes) * time.Minute
	}

	chain := input.Chain
	if chain == "" {
		chain = "solana"
	}
	sizeUsd := input.SuggestedSizeUsd
	if sizeUsd <= 0 {
		sizeUsd = profile.MaxPositionSizeUsd
	}

	suggestion := models.TradeSuggestion{
		ID:               newID("sug"),
		UserID:           input.UserID,
		PredictionID:     input.PredictionID,
		Ticker:           strings.ToUpper(input.Ticker),
		Chain:            chain,
		Signal:           input.Signal,
		Confidence:       input.Confidence,
		SuggestedSizeUsd: sizeUsd,
		EntryPrice:       input.EntryPrice,
		Rationale:        input.Rationale,
		Status:           models.SuggestionPending,
		ExpiresAt:        time.Now().Add(ttl),
	}

	if err := s.db.Create(&suggestion).Error; err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}

	s.metrics.Suggestions.WithLabelValues("created").Inc()
	s.logger.Info("Created trade suggestion",
		zap.String("suggestion_id", suggestion.ID),
		zap.String("user_id", suggestion.UserID),
		zap.String("ticker", suggestion.Ticker),
		zap.String("signal", suggestion.Signal),
	)
	return &suggestion, nil
}

// GetSuggestion loads a suggestion by id.
func (s *Service) GetSuggestion(id string) (*models.TradeSuggestion, error) {
	var suggestion models.TradeSuggestion
	if err := s.db.Where("id = ?", id).First(&suggestion).Error; err != nil {
		return nil, notFoundOr(err, "suggestion")
	}
	return &suggestion, nil
}

// ListSuggestions returns the user's suggestions, newest first, optionally
// filtered by status.
func (s *Service) ListSuggestions(userID string, status models.SuggestionStatus) ([]models.TradeSuggestion, error) {
	query := s.db.Where("user_id = ?", userID).Order("created_at desc")
	if status != "" {
		if !status.Valid() {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid suggestion status: %s", status)}
		}
		query = query.Where("status = ?", status)
	}

	var suggestions []models.TradeSuggestion
	if err := query.Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return suggestions, nil
}

// ApproveSuggestion moves a pending suggestion to approved. The kill switch
// is re-checked here: it may have flipped on between creation and approval.
// The transition is a conditional update so that approve, reject and expire
// are mutually exclusive: exactly one wins if they race.
func (s *Service) ApproveSuggestion(id string) (*models.TradeSuggestion, error) {
	suggestion, err := s.GetSuggestion(id)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.SuggestionPending {
		return nil, &StateConflictError{Op: "approve", Entity: "suggestion", Status: string(suggestion.Status)}
	}

	profile, err := s.GetOrCreateProfile(suggestion.UserID)
	if err != nil {
		return nil, err
	}
	if profile.KillSwitchActive {
		return nil, &KillSwitchActiveError{UserID: suggestion.UserID, Reason: profile.KillSwitchReason}
	}

	now := time.Now()
	res := s.db.Model(&models.TradeSuggestion{}).
		Where("id = ? AND status = ?", id, models.SuggestionPending).
		Updates(map[string]interface{}{"status": models.SuggestionApproved, "approved_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to approve suggestion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent reject/expire/approve.
		current, err := s.GetSuggestion(id)
		if err != nil {
			return nil, err
		}
		return nil, &StateConflictError{Op: "approve", Entity: "suggestion", Status: string(current.Status)}
	}

	s.metrics.Suggestions.WithLabelValues("approved").Inc()
	s.logger.Info("Suggestion approved", zap.String("suggestion_id", id))
	return s.GetSuggestion(id)
}

// RejectSuggestion moves a pending suggestion to rejected, folding the
// reason into the rationale.
func (s *Service) RejectSuggestion(id, reason string) (*models.TradeSuggestion, error) {
	suggestion, err := s.GetSuggestion(id)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.SuggestionPending {
		return nil, &StateConflictError{Op: "reject", Entity: "suggestion", Status: string(suggestion.Status)}
	}

	now := time.Now()
	updates := map[string]interface{}{"status": models.SuggestionRejected, "rejected_at": now}
	if reason != "" {
		updates["rationale"] = fmt.Sprintf("Rejected: %s", reason)
	}

	res := s.db.Model(&models.TradeSuggestion{}).
		Where("id = ? AND status = ?", id, models.SuggestionPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reject suggestion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := s.GetSuggestion(id)
		if err != nil {
			return nil, err
		}
		return nil, &StateConflictError{Op: "reject", Entity: "suggestion", Status: string(current.Status)}
	}

	s.metrics.Suggestions.WithLabelValues("rejected").Inc()
	s.logger.Info("Suggestion rejected", zap.String("suggestion_id", id), zap.String("reason", reason))
	return s.GetSuggestion(id)
}

// ExpireSuggestions transitions every pending suggestion past its expiry to
// expired. Idempotent, and safe to run concurrently with approvals: the
// store serializes the conditional updates, so a suggestion racing between
// approve and expire keeps whichever transition lands first.
func (s *Service) ExpireSuggestions() (int64, error) {
	res := s.db.Model(&models.TradeSuggestion{}).
		Where("status = ? AND expires_at < ?", models.SuggestionPending, time.Now()).
		Update("status", models.SuggestionExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire suggestions: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		s.metrics.Suggestions.WithLabelValues("expired").Add(float64(res.RowsAffected))
		s.logger.Info("Expired pending suggestions", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
