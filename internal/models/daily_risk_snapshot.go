package models

import "time"

// DailyRiskSnapshot is the per-user, per-day aggregate of exposure and
// realized PnL. One row per user per calendar day, recomputed after every
// execution open or close.
type DailyRiskSnapshot struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	UserID              string    `gorm:"index:idx_user_day;not null" json:"user_id"`
	SnapshotDate        time.Time `gorm:"index:idx_user_day" json:"snapshot_date"`
	TotalExposureUsd    float64   `json:"total_exposure_usd"`
	RealizedPnlUsd      float64   `json:"realized_pnl_usd"`
	TradesExecuted      int       `json:"trades_executed"`
	KillSwitchTriggered bool      `json:"kill_switch_triggered"`
	KillSwitchReason    string    `json:"kill_switch_reason,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
