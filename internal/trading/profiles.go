package trading

import (
	"errors"
	"fmt"
	"time"

	"auto-trade-engine-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Default risk limits applied when a profile is created lazily.
const (
	defaultMaxPositionSizeUsd     = 100
	defaultMaxDailyLossUsd        = 50
	defaultMaxSimultaneousTrades  = 3
	defaultMinConfidenceThreshold = 0.65
)

// ProfileUpdate is a partial profile configuration. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Mode                   *models.TradingMode `json:"mode,omitempty"`
	MaxPositionSizeUsd     *float64            `json:"max_position_size_usd,omitempty"`
	MaxDailyLossUsd        *float64            `json:"max_daily_loss_usd,omitempty"`
	MaxSimultaneousTrades  *int                `json:"max_simultaneous_trades,omitempty"`
	MinConfidenceThreshold *float64            `json:"min_confidence_threshold,omitempty"`
}

// GetOrCreateProfile returns the user's trading profile, inserting one with
// safe defaults on first access. Idempotent.
func (s *Service) GetOrCreateProfile(userID string) (*models.TradingProfile, error) {
	var profile models.TradingProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load trading profile: %w", err)
	}

	profile = models.TradingProfile{
		ID:                     newID("prof"),
		UserID:                 userID,
		Mode:                   models.ModeObserver,
		MaxPositionSizeUsd:     defaultMaxPositionSizeUsd,
		MaxDailyLossUsd:        defaultMaxDailyLossUsd,
		MaxSimultaneousTrades:  defaultMaxSimultaneousTrades,
		MinConfidenceThreshold: defaultMinConfidenceThreshold,
	}
	// FirstOrCreate keeps concurrent first accesses idempotent: whichever
	// insert wins, both callers read the same row back.
	if err := s.db.Where(models.TradingProfile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create trading profile: %w", err)
	}

	s.logger.Info("Created trading profile with defaults", zap.String("user_id", userID))
	return &profile, nil
}

// UpdateProfile applies a partial configuration to the user's profile.
// Requesting full_auto mode while it is locked is a validation error.
func (s *Service) UpdateProfile(userID string, update ProfileUpdate) (*models.TradingProfile, error) {
	profile, err := s.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if update.Mode != nil {
		if !update.Mode.Valid() {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid trading mode: %s", *update.Mode)}
		}
		if *update.Mode == models.ModeFullAuto && !profile.FullAutoUnlocked {
			return nil, &ValidationError{Msg: "full_auto mode is locked. Complete the milestone requirements first."}
		}
		updates["mode"] = *update.Mode
	}
	if update.MaxPositionSizeUsd != nil {
		updates["max_position_size_usd"] = *update.MaxPositionSizeUsd
	}
	if update.MaxDailyLossUsd != nil {
		updates["max_daily_loss_usd"] = *update.MaxDailyLossUsd
	}
	if update.MaxSimultaneousTrades != nil {
		updates["max_simultaneous_trades"] = *update.MaxSimultaneousTrades
	}
	if update.MinConfidenceThreshold != nil {
		updates["min_confidence_threshold"] = *update.MinConfidenceThreshold
	}

	if err := s.db.Model(&models.TradingProfile{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update trading profile: %w", err)
	}

	return s.GetOrCreateProfile(userID)
}

// SetMode switches the user's autonomy tier. The full_auto guard applies
// here as well; every other transition is unconditional, including moving
// down from full_auto and back up while the unlock flag is set.
func (s *Service) SetMode(userID string, mode models.TradingMode) (*models.TradingProfile, error) {
	if !mode.Valid() {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid trading mode: %s", mode)}
	}

	profile, err := s.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}

	if mode == models.ModeFullAuto && !profile.FullAutoUnlocked {
		return nil, &ValidationError{Msg: fmt.Sprintf("full_auto mode requires %d evaluated outcomes and manual unlock.", s.cfg.MilestoneTarget)}
	}

	err = s.db.Model(&models.TradingProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"mode": mode, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to set trading mode: %w", err)
	}

	s.logger.Info("Trading mode set", zap.String("user_id", userID), zap.String("mode", string(mode)))
	return s.GetOrCreateProfile(userID)
}

// ActiveProfiles returns all non-observer profiles; sweepers iterate these
// independently per user.
func (s *Service) ActiveProfiles() ([]models.TradingProfile, error) {
	var profiles []models.TradingProfile
	if err := s.db.Where("mode != ?", models.ModeObserver).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}
	return profiles, nil
}
