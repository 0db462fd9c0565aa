package models

import "time"

// ExecutionStatus is the lifecycle status of a trade execution.
type ExecutionStatus string

const (
	ExecutionOpen      ExecutionStatus = "open"
	ExecutionClosed    ExecutionStatus = "closed"
	ExecutionCancelled ExecutionStatus = "cancelled"
	ExecutionFailed    ExecutionStatus = "failed"
)

// TradeSide is the direction of an execution.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeExecution is a persisted record of a trade attempt, open or closed.
// An execution with an empty ExchangeOrderID and a non-empty ErrorMessage is
// a paper trade: the external order failed but the record is kept for audit.
type TradeExecution struct {
	ID                   string          `gorm:"primaryKey" json:"id"`
	UserID               string          `gorm:"index;not null" json:"user_id"`
	SuggestionID         string          `gorm:"index" json:"suggestion_id,omitempty"`
	ExchangeConnectionID string          `json:"exchange_connection_id,omitempty"`
	Ticker               string          `gorm:"not null" json:"ticker"`
	Chain                string          `json:"chain"`
	Side                 TradeSide       `gorm:"not null" json:"side"`
	SizeUsd              float64         `json:"size_usd"`
	EntryPrice           float64         `json:"entry_price"`
	ExitPrice            float64         `json:"exit_price,omitempty"`
	Status               ExecutionStatus `gorm:"index;not null" json:"status"`
	Mode                 TradingMode     `json:"mode"`
	RealizedPnlUsd       float64         `json:"realized_pnl_usd"`
	RealizedPnlPercent   float64         `json:"realized_pnl_percent"`
	ExchangeOrderID      string          `json:"exchange_order_id,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	OpenedAt             time.Time       `json:"opened_at"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
}
