package models

import "time"

// TradingMode is the autonomy tier of a trading profile.
type TradingMode string

const (
	ModeObserver TradingMode = "observer"
	ModeApproval TradingMode = "approval"
	ModeSemiAuto TradingMode = "semi_auto"
	ModeFullAuto TradingMode = "full_auto"
)

// Valid reports whether m is one of the known autonomy tiers.
func (m TradingMode) Valid() bool {
	switch m {
	case ModeObserver, ModeApproval, ModeSemiAuto, ModeFullAuto:
		return true
	}
	return false
}

// TradingProfile is the per-user configuration of autonomy tier and risk limits.
// Profiles are created lazily on first access and never deleted.
type TradingProfile struct {
	ID                     string      `gorm:"primaryKey" json:"id"`
	UserID                 string      `gorm:"uniqueIndex;not null" json:"user_id"`
	Mode                   TradingMode `gorm:"not null" json:"mode"`
	MaxPositionSizeUsd     float64     `json:"max_position_size_usd"`
	MaxDailyLossUsd        float64     `json:"max_daily_loss_usd"`
	MaxSimultaneousTrades  int         `json:"max_simultaneous_trades"`
	MinConfidenceThreshold float64     `json:"min_confidence_threshold"`
	KillSwitchActive       bool        `json:"kill_switch_active"`
	KillSwitchReason       string      `json:"kill_switch_reason,omitempty"`

	// FullAutoUnlocked is a one-way grant: once true it is never
	// auto-reverted, even if the global milestone count later regresses.
	FullAutoUnlocked          bool `json:"full_auto_unlocked"`
	EvaluatedOutcomesAtUnlock *int `json:"evaluated_outcomes_at_unlock,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
