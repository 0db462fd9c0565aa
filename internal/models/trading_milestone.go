package models

import "time"

// MilestoneFullAutoUnlock is the single system-wide milestone gating the
// full_auto autonomy tier.
const MilestoneFullAutoUnlock = "full_auto_unlock"

// TradingMilestone tracks a system-wide counter against a target.
// IsCompleted is sticky: once set it never reverts, even if CurrentValue
// later regresses due to a data correction.
type TradingMilestone struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	MilestoneName string     `gorm:"uniqueIndex;not null" json:"milestone_name"`
	TargetValue   int        `json:"target_value"`
	CurrentValue  int        `json:"current_value"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
