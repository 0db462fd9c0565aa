package trading

import (
	"errors"
	"fmt"
	"math"
	"time"

	"auto-trade-engine-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MilestoneStatus is the evaluated state of the full-auto milestone.
type MilestoneStatus struct {
	MilestoneName string  `json:"milestone_name"`
	TargetValue   int     `json:"target_value"`
	CurrentValue  int     `json:"current_value"`
	IsCompleted   bool    `json:"is_completed"`
	Progress      float64 `json:"progress"`
}

// CheckFullAutoMilestone counts evaluated prediction outcomes system-wide
// and upserts the single milestone row. Completion is sticky: once the
// count has reached the target, a later recount below it does not
// un-complete the milestone.
func (s *Service) CheckFullAutoMilestone() (*MilestoneStatus, error) {
	target := s.cfg.MilestoneTarget

	var evaluated int64
	err := s.db.Model(&models.PredictionEvent{}).
		Where("status = ?", models.PredictionEvaluated).
		Count(&evaluated).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count evaluated outcomes: %w", err)
	}
	current := int(evaluated)

	var milestone models.TradingMilestone
	err = s.db.Where("milestone_name = ?", models.MilestoneFullAutoUnlock).First(&milestone).Error
	now := time.Now()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		milestone = models.TradingMilestone{
			ID:            newID("mile"),
			MilestoneName: models.MilestoneFullAutoUnlock,
			TargetValue:   target,
			CurrentValue:  current,
			IsCompleted:   current >= target,
		}
		if milestone.IsCompleted {
			milestone.CompletedAt = &now
		}
		if err := s.db.Create(&milestone).Error; err != nil {
			return nil, fmt.Errorf("failed to create milestone: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load milestone: %w", err)
	default:
		completed := milestone.IsCompleted || current >= target
		updates := map[string]interface{}{
			"current_value": current,
			"is_completed":  completed,
			"updated_at":    now,
		}
		if completed && !milestone.IsCompleted {
			updates["completed_at"] = now
		}
		if err := s.db.Model(&milestone).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update milestone: %w", err)
		}
		milestone.CurrentValue = current
		milestone.IsCompleted = completed
	}

	s.logger.Debug("Milestone check",
		zap.Int("current", current),
		zap.Int("target", target),
		zap.Bool("completed", milestone.IsCompleted),
	)

	return &MilestoneStatus{
		MilestoneName: models.MilestoneFullAutoUnlock,
		TargetValue:   target,
		CurrentValue:  current,
		IsCompleted:   milestone.IsCompleted,
		Progress:      math.Min(100, float64(current)/float64(target)*100),
	}, nil
}

// GetMilestones returns all milestone rows, newest first.
func (s *Service) GetMilestones() ([]models.TradingMilestone, error) {
	var milestones []models.TradingMilestone
	if err := s.db.Order("created_at desc").Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// UnlockFullAuto grants the user the full_auto tier. Requires the global
// milestone to be complete; the grant is permanent for the user thereafter.
func (s *Service) UnlockFullAuto(userID string) (*models.TradingProfile, error) {
	milestone, err := s.CheckFullAutoMilestone()
	if err != nil {
		return nil, err
	}

	if !milestone.IsCompleted {
		remaining := milestone.TargetValue - milestone.CurrentValue
		return nil, &ValidationError{
			Msg: fmt.Sprintf("cannot unlock full_auto: need %d more evaluated outcomes", remaining),
		}
	}

	if _, err := s.GetOrCreateProfile(userID); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.TradingProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"full_auto_unlocked":           true,
			"evaluated_outcomes_at_unlock": milestone.CurrentValue,
			"updated_at":                   time.Now(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to unlock full auto: %w", err)
	}

	s.logger.Info("Full auto unlocked",
		zap.String("user_id", userID),
		zap.Int("evaluated_outcomes", milestone.CurrentValue),
	)
	return s.GetOrCreateProfile(userID)
}
