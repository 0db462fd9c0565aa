package models

import "time"

// ExchangeConnection is a per-user link to an exchange account. The engine
// only reads these: executions resolve the most recently validated active
// connection when none is supplied.
type ExchangeConnection struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	UserID        string     `gorm:"index;not null" json:"user_id"`
	Exchange      string     `json:"exchange"`
	Label         string     `json:"label,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastValidated *time.Time `json:"last_validated,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
