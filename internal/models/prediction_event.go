package models

import "time"

// Prediction event statuses. A "stamped" prediction is a fresh signal; an
// "evaluated" one has its ground truth resolved and counts toward the
// full-auto milestone.
const (
	PredictionStamped   = "stamped"
	PredictionEvaluated = "evaluated"
)

// Prediction confidence buckets as emitted by the upstream model.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// PredictionEvent is a model-generated trade signal. The engine treats the
// model as an opaque upstream source: it only curates stamped HIGH/MEDIUM
// events into suggestions and counts evaluated ones.
type PredictionEvent struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Ticker            string    `gorm:"index;not null" json:"ticker"`
	AssetType         string    `json:"asset_type"`
	Signal            string    `json:"signal"`
	Confidence        string    `json:"confidence"`
	Status            string    `gorm:"index" json:"status"`
	PriceAtPrediction float64   `json:"price_at_prediction"`
	CreatedAt         time.Time `json:"created_at"`
}
