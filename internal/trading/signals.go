package trading

import (
	"fmt"

	"auto-trade-engine-go/internal/models"
)

// FreshPredictions returns the most recent stamped HIGH/MEDIUM model
// predictions. The model itself is an opaque upstream collaborator; the
// engine only curates its output into suggestions.
func (s *Service) FreshPredictions(limit int) ([]models.PredictionEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var predictions []models.PredictionEvent
	err := s.db.Where("status = ? AND confidence IN ?",
		models.PredictionStamped,
		[]string{models.ConfidenceHigh, models.ConfidenceMedium}).
		Order("created_at desc").
		Limit(limit).
		Find(&predictions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fresh predictions: %w", err)
	}
	return predictions, nil
}
