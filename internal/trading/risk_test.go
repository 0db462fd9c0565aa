package trading

import (
	"testing"

	"auto-trade-engine-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func riskProfile() *models.TradingProfile {
	return &models.TradingProfile{
		UserID:                "user-1",
		Mode:                  models.ModeApproval,
		MaxPositionSizeUsd:    100,
		MaxDailyLossUsd:       50,
		MaxSimultaneousTrades: 3,
	}
}

func TestCheckRiskLimits_Allowed(t *testing.T) {
	result := CheckRiskLimits(riskProfile(), 100.00, 0, 0)

	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reason)
}

func TestCheckRiskLimits_KillSwitchWinsFirst(t *testing.T) {
	// Every other limit is also violated; the kill switch must be the reason.
	profile := riskProfile()
	profile.KillSwitchActive = true

	result := CheckRiskLimits(profile, 500, 10, -1000)

	assert.False(t, result.Allowed)
	assert.Equal(t, "kill switch is active", result.Reason)
}

func TestCheckRiskLimits_PositionSizeBoundary(t *testing.T) {
	// Exactly at the limit is allowed.
	result := CheckRiskLimits(riskProfile(), 100.00, 0, 0)
	assert.True(t, result.Allowed)

	// One cent over is denied, citing both numbers.
	result = CheckRiskLimits(riskProfile(), 100.01, 0, 0)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "100.01")
	assert.Contains(t, result.Reason, "100.00")
}

func TestCheckRiskLimits_OpenTradeCap(t *testing.T) {
	result := CheckRiskLimits(riskProfile(), 50, 3, 0)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "3 open trades")
	assert.Contains(t, result.Reason, "max: 3")
}

func TestCheckRiskLimits_DailyLossLimit(t *testing.T) {
	result := CheckRiskLimits(riskProfile(), 50, 0, -50.01)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "daily loss limit reached")

	// A loss exactly at the limit does not trip it.
	result = CheckRiskLimits(riskProfile(), 50, 0, -50)
	assert.True(t, result.Allowed)
}

func TestCheckRiskLimits_DoesNotMutateProfile(t *testing.T) {
	profile := riskProfile()
	before := *profile

	CheckRiskLimits(profile, 100.01, 5, -100)

	assert.Equal(t, before, *profile)
}
