package trading

import (
	"fmt"
	"math"

	"auto-trade-engine-go/internal/models"
)

// RiskCheckResult is the outcome of a risk limit evaluation.
type RiskCheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CheckRiskLimits decides whether a prospective trade is permitted. It is a
// pure function: all inputs come from a single consistent read by the
// caller, and the checks run in a fixed fail-fast order: kill switch,
// position size, open-trade cap, daily loss.
func CheckRiskLimits(profile *models.TradingProfile, candidateSizeUsd float64, openTradeCount int, todaysRealizedPnl float64) RiskCheckResult {
	if profile.KillSwitchActive {
		return RiskCheckResult{Allowed: false, Reason: "kill switch is active"}
	}

	if candidateSizeUsd > profile.MaxPositionSizeUsd {
		return RiskCheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("trade size $%.2f exceeds max position $%.2f", candidateSizeUsd, profile.MaxPositionSizeUsd),
		}
	}

	if openTradeCount >= profile.MaxSimultaneousTrades {
		return RiskCheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("already have %d open trades (max: %d)", openTradeCount, profile.MaxSimultaneousTrades),
		}
	}

	if todaysRealizedPnl < -profile.MaxDailyLossUsd {
		return RiskCheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("daily loss limit reached: $%.2f / $%.2f", math.Abs(todaysRealizedPnl), profile.MaxDailyLossUsd),
		}
	}

	return RiskCheckResult{Allowed: true}
}
