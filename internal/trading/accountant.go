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

// LossBreach reports a user whose realized daily loss crossed their limit.
type LossBreach struct {
	UserID    string  `json:"user_id"`
	DailyLoss float64 `json:"daily_loss"`
	MaxLoss   float64 `json:"max_loss"`
}

// UpdateDailySnapshot recomputes today's risk snapshot for the user from
// the executions opened today: open exposure, closed realized PnL and the
// trade count. Upserts the single row for the day.
func (s *Service) UpdateDailySnapshot(userID string) (*models.DailyRiskSnapshot, error) {
	today := startOfDay(time.Now())

	var executions []models.TradeExecution
	err := s.db.Where("user_id = ? AND opened_at >= ?", userID, today).Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load today's executions: %w", err)
	}

	var totalExposure, realizedPnl float64
	for _, e := range executions {
		switch e.Status {
		case models.ExecutionOpen:
			totalExposure += e.SizeUsd
		case models.ExecutionClosed:
			realizedPnl += e.RealizedPnlUsd
		}
	}

	var snapshot models.DailyRiskSnapshot
	err = s.db.Where("user_id = ? AND snapshot_date >= ?", userID, today).First(&snapshot).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		snapshot = models.DailyRiskSnapshot{
			ID:               newID("risk"),
			UserID:           userID,
			SnapshotDate:     today,
			TotalExposureUsd: totalExposure,
			RealizedPnlUsd:   realizedPnl,
			TradesExecuted:   len(executions),
		}
		if err := s.db.Create(&snapshot).Error; err != nil {
			return nil, fmt.Errorf("failed to create daily snapshot: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load daily snapshot: %w", err)
	default:
		updates := map[string]interface{}{
			"total_exposure_usd": totalExposure,
			"realized_pnl_usd":   realizedPnl,
			"trades_executed":    len(executions),
		}
		if err := s.db.Model(&snapshot).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update daily snapshot: %w", err)
		}
		snapshot.TotalExposureUsd = totalExposure
		snapshot.RealizedPnlUsd = realizedPnl
		snapshot.TradesExecuted = len(executions)
	}

	return &snapshot, nil
}

// TriggerKillSwitch halts the user's trading. Idempotent: re-triggering
// overwrites the reason. Today's snapshot row is stamped with the trigger
// event for the audit trail.
func (s *Service) TriggerKillSwitch(userID, reason string) (*models.TradingProfile, error) {
	if _, err := s.GetOrCreateProfile(userID); err != nil {
		return nil, err
	}

	err := s.db.Model(&models.TradingProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"kill_switch_active": true,
			"kill_switch_reason": reason,
			"updated_at":         time.Now(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to trigger kill switch: %w", err)
	}

	today := startOfDay(time.Now())
	var snapshot models.DailyRiskSnapshot
	err = s.db.Where("user_id = ? AND snapshot_date >= ?", userID, today).First(&snapshot).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		snapshot = models.DailyRiskSnapshot{
			ID:                  newID("risk"),
			UserID:              userID,
			SnapshotDate:        today,
			KillSwitchTriggered: true,
			KillSwitchReason:    reason,
		}
		if err := s.db.Create(&snapshot).Error; err != nil {
			return nil, fmt.Errorf("failed to record kill switch snapshot: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load daily snapshot: %w", err)
	default:
		err = s.db.Model(&snapshot).Updates(map[string]interface{}{
			"kill_switch_triggered": true,
			"kill_switch_reason":    reason,
		}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to record kill switch snapshot: %w", err)
		}
	}

	s.metrics.KillSwitch.Inc()
	s.logger.Warn("KILL SWITCH ACTIVATED",
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
	return s.GetOrCreateProfile(userID)
}

// ResetKillSwitch clears the flag and reason. It does not restore any
// consumed risk budget; the next sweep recomputes from live data.
func (s *Service) ResetKillSwitch(userID string) (*models.TradingProfile, error) {
	if _, err := s.GetOrCreateProfile(userID); err != nil {
		return nil, err
	}

	err := s.db.Model(&models.TradingProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"kill_switch_active": false,
			"kill_switch_reason": "",
			"updated_at":         time.Now(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reset kill switch: %w", err)
	}

	s.logger.Info("Kill switch reset", zap.String("user_id", userID))
	return s.GetOrCreateProfile(userID)
}

// CheckDailyLossLimits sweeps every non-observer, non-kill-switched profile
// and trips the kill switch for any user whose realized daily loss exceeds
// their limit. Returns the breaches for alerting; kill-switch triggers are
// terminal safety events and are never silently retried.
func (s *Service) CheckDailyLossLimits() ([]LossBreach, error) {
	var profiles []models.TradingProfile
	err := s.db.Where("mode != ? AND kill_switch_active = ?", models.ModeObserver, false).Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	var breaches []LossBreach
	for _, profile := range profiles {
		pnl, err := todaysRealizedPnl(s.db, profile.UserID, time.Now())
		if err != nil {
			s.logger.Error("Failed to read snapshot during loss sweep",
				zap.String("user_id", profile.UserID), zap.Error(err))
			continue
		}

		if pnl < -profile.MaxDailyLossUsd {
			loss := math.Abs(pnl)
			reason := fmt.Sprintf("Daily loss limit exceeded: $%.2f", loss)
			if _, err := s.TriggerKillSwitch(profile.UserID, reason); err != nil {
				s.logger.Error("Failed to trigger kill switch during loss sweep",
					zap.String("user_id", profile.UserID), zap.Error(err))
				continue
			}
			breaches = append(breaches, LossBreach{
				UserID:    profile.UserID,
				DailyLoss: loss,
				MaxLoss:   profile.MaxDailyLossUsd,
			})
		}
	}

	return breaches, nil
}
