package models

import "time"

// SuggestionStatus is the lifecycle status of a trade suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionExpired  SuggestionStatus = "expired"
	SuggestionExecuted SuggestionStatus = "executed"
)

// Valid reports whether s is a known suggestion status.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionPending, SuggestionApproved, SuggestionRejected, SuggestionExpired, SuggestionExecuted:
		return true
	}
	return false
}

// Terminal reports whether s allows no further transitions.
// "approved" is intermediate: it must still become "executed".
func (s SuggestionStatus) Terminal() bool {
	switch s {
	case SuggestionRejected, SuggestionExpired, SuggestionExecuted:
		return true
	}
	return false
}

// Signal values supplied by the upstream signal source.
const (
	SignalBuy        = "BUY"
	SignalSell       = "SELL"
	SignalStrongBuy  = "STRONG_BUY"
	SignalStrongSell = "STRONG_SELL"
	SignalHold       = "HOLD"
)

// ValidSignal reports whether signal is one of the known signal values.
func ValidSignal(signal string) bool {
	switch signal {
	case SignalBuy, SignalSell, SignalStrongBuy, SignalStrongSell, SignalHold:
		return true
	}
	return false
}

// TradeSuggestion is a proposed trade awaiting a status-terminal decision.
type TradeSuggestion struct {
	ID               string           `gorm:"primaryKey" json:"id"`
	UserID           string           `gorm:"index;not null" json:"user_id"`
	PredictionID     string           `json:"prediction_id,omitempty"`
	Ticker           string           `gorm:"not null" json:"ticker"`
	Chain            string           `json:"chain"`
	Signal           string           `gorm:"not null" json:"signal"`
	Confidence       float64          `json:"confidence"`
	SuggestedSizeUsd float64          `json:"suggested_size_usd"`
	EntryPrice       float64          `json:"entry_price"`
	Rationale        string           `json:"rationale,omitempty"`
	Status           SuggestionStatus `gorm:"index;not null" json:"status"`
	ExpiresAt        time.Time        `json:"expires_at"`
	ApprovedAt       *time.Time       `json:"approved_at,omitempty"`
	RejectedAt       *time.Time       `json:"rejected_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}
