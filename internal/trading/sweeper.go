package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auto-trade-engine-go/internal/config"
	"auto-trade-engine-go/internal/models"

	"go.uber.org/zap"
)

// Sweeper runs the engine's periodic background tasks: suggestion expiry,
// the daily-loss safety monitor, the milestone tracker, mode-driven
// auto-execution and signal curation. Each task runs on its own ticker; a
// shutdown signal lets an in-flight sweep finish its current batch.
type Sweeper struct {
	svc    *Service
	cfg    config.Trading
	logger *zap.Logger
}

// NewSweeper creates a sweeper over the given engine.
func NewSweeper(svc *Service, cfg config.Trading, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		svc:    svc,
		cfg:    cfg,
		logger: logger.Named("sweeper"),
	}
}

// Run starts all sweep loops and blocks until ctx is cancelled and every
// in-flight sweep has finished.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Starting background sweeps")

	var wg sync.WaitGroup
	loops := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) error
	}{
		{"expire", s.cfg.ExpireSweepInterval, s.expireSweep},
		{"safety", s.cfg.SafetySweepInterval, s.safetySweep},
		{"milestone", s.cfg.MilestoneSweepInterval, s.milestoneSweep},
		{"auto_execute", s.cfg.AutoExecuteInterval, s.autoExecuteSweep},
		{"signal_curation", s.cfg.SignalSweepInterval, s.signalCurationSweep},
	}

	for _, loop := range loops {
		wg.Add(1)
		go func(name string, interval time.Duration, fn func(context.Context) error) {
			defer wg.Done()
			s.loop(ctx, name, interval, fn)
		}(loop.name, loop.interval, loop.fn)
	}

	wg.Wait()
	s.logger.Info("Background sweeps stopped")
}

// loop runs fn on a ticker until ctx is cancelled.
func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Sweep loop started", zap.String("sweep", name), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep loop stopping", zap.String("sweep", name))
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				s.logger.Error("Sweep failed", zap.String("sweep", name), zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) expireSweep(context.Context) error {
	_, err := s.svc.ExpireSuggestions()
	return err
}

// safetySweep trips kill switches for users past their daily loss limit.
// Breaches are always surfaced as alerts, never silently retried.
func (s *Sweeper) safetySweep(context.Context) error {
	breaches, err := s.svc.CheckDailyLossLimits()
	if err != nil {
		return err
	}
	for _, b := range breaches {
		s.logger.Warn("ALERT: kill switch triggered by daily loss limit",
			zap.String("user_id", b.UserID),
			zap.Float64("daily_loss", b.DailyLoss),
			zap.Float64("max_loss", b.MaxLoss),
		)
	}
	return nil
}

func (s *Sweeper) milestoneSweep(context.Context) error {
	milestone, err := s.svc.CheckFullAutoMilestone()
	if err != nil {
		return err
	}
	if milestone.IsCompleted {
		s.logger.Info("Full auto milestone complete",
			zap.Int("current", milestone.CurrentValue),
			zap.Int("target", milestone.TargetValue),
		)
	}
	return nil
}

// autoExecuteSweep drives suggestion execution per profile mode: approved
// suggestions are executed for everyone; full_auto approves and executes
// pending ones; semi_auto does the same when confidence clears the
// profile's threshold; approval mode leaves pending suggestions to humans.
// Users are independent: one user's failure never blocks another's sweep.
func (s *Sweeper) autoExecuteSweep(ctx context.Context) error {
	profiles, err := s.svc.ActiveProfiles()
	if err != nil {
		return err
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if profile.KillSwitchActive {
			continue
		}

		approved, err := s.svc.ListSuggestions(profile.UserID, models.SuggestionApproved)
		if err != nil {
			s.logger.Error("Failed to list approved suggestions",
				zap.String("user_id", profile.UserID), zap.Error(err))
			continue
		}
		for _, sug := range approved {
			s.execute(ctx, sug)
		}

		if profile.Mode == models.ModeApproval {
			continue
		}

		pending, err := s.svc.ListSuggestions(profile.UserID, models.SuggestionPending)
		if err != nil {
			s.logger.Error("Failed to list pending suggestions",
				zap.String("user_id", profile.UserID), zap.Error(err))
			continue
		}

		for _, sug := range pending {
			if profile.Mode == models.ModeSemiAuto && sug.Confidence < profile.MinConfidenceThreshold {
				s.logger.Debug("Skipping suggestion below confidence threshold",
					zap.String("suggestion_id", sug.ID),
					zap.Float64("confidence", sug.Confidence),
					zap.Float64("threshold", profile.MinConfidenceThreshold),
				)
				continue
			}

			if _, err := s.svc.ApproveSuggestion(sug.ID); err != nil {
				var conflict *StateConflictError
				if !errors.As(err, &conflict) {
					s.logger.Error("Auto-approve failed",
						zap.String("suggestion_id", sug.ID), zap.Error(err))
				}
				continue
			}
			s.execute(ctx, sug)
		}
	}
	return nil
}

// execute runs a single suggestion through the coordinator, downgrading
// risk denials to debug noise: the suggestion stays approved and is
// retried on the next pass once headroom frees up.
func (s *Sweeper) execute(ctx context.Context, sug models.TradeSuggestion) {
	if _, err := s.svc.ExecuteTrade(ctx, sug.ID, ""); err != nil {
		var riskErr *RiskLimitExceededError
		if errors.As(err, &riskErr) {
			s.logger.Debug("Execution deferred by risk limits",
				zap.String("suggestion_id", sug.ID),
				zap.String("reason", riskErr.Reason),
			)
			return
		}
		s.logger.Error("Auto-execute failed", zap.String("suggestion_id", sug.ID), zap.Error(err))
	}
}

// signalCurationSweep turns fresh HIGH/MEDIUM model predictions into
// pending suggestions for every active profile, skipping tickers that
// already have one pending.
func (s *Sweeper) signalCurationSweep(ctx context.Context) error {
	profiles, err := s.svc.ActiveProfiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return nil
	}

	predictions, err := s.svc.FreshPredictions(20)
	if err != nil {
		return err
	}

	created := 0
	for _, profile := range profiles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if profile.KillSwitchActive {
			continue
		}

		pending, err := s.svc.ListSuggestions(profile.UserID, models.SuggestionPending)
		if err != nil {
			s.logger.Error("Failed to list pending suggestions",
				zap.String("user_id", profile.UserID), zap.Error(err))
			continue
		}
		pendingTickers := make(map[string]struct{}, len(pending))
		for _, sug := range pending {
			pendingTickers[sug.Ticker] = struct{}{}
		}

		for _, pred := range predictions {
			if _, exists := pendingTickers[pred.Ticker]; exists {
				continue
			}

			confidence := 0.65
			if pred.Confidence == models.ConfidenceHigh {
				confidence = 0.85
			}
			chain := "solana"
			if pred.AssetType != "" && pred.AssetType != "crypto" {
				chain = pred.AssetType
			}

			_, err := s.svc.CreateSuggestion(SuggestionInput{
				UserID:       profile.UserID,
				PredictionID: pred.ID,
				Ticker:       pred.Ticker,
				Chain:        chain,
				Signal:       pred.Signal,
				Confidence:   confidence,
				EntryPrice:   pred.PriceAtPrediction,
				Rationale:    fmt.Sprintf("Model signal: %s with %s confidence", pred.Signal, pred.Confidence),
			})
			if err != nil {
				s.logger.Error("Failed to create curated suggestion",
					zap.String("user_id", profile.UserID),
					zap.String("ticker", pred.Ticker),
					zap.Error(err),
				)
				continue
			}
			pendingTickers[pred.Ticker] = struct{}{}
			created++
		}
	}

	if created > 0 {
		s.logger.Info("Curated model signals into suggestions", zap.Int("created", created))
	}
	return nil
}
