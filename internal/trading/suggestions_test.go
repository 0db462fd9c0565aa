package trading

import (
	"testing"
	"time"

	"auto-trade-engine-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func pendingSuggestion(t *testing.T, svc *Service, userID string) *models.TradeSuggestion {
	sug, err := svc.CreateSuggestion(SuggestionInput{
		UserID:     userID,
		Ticker:     "sol",
		Signal:     models.SignalBuy,
		Confidence: 0.8,
		EntryPrice: 100,
	})
	assert.NoError(t, err)
	return sug
}

func TestCreateSuggestion_Defaults(t *testing.T) {
	svc, _ := setupTest(t, nil)

	before := time.Now()
	sug := pendingSuggestion(t, svc, "user-1")

	assert.Equal(t, models.SuggestionPending, sug.Status)
	assert.Equal(t, "SOL", sug.Ticker)
	assert.Equal(t, "solana", sug.Chain)
	// Size defaults to the profile's max position.
	assert.Equal(t, 100.0, sug.SuggestedSizeUsd)
	// Default TTL is 60 minutes.
	assert.WithinDuration(t, before.Add(60*time.Minute), sug.ExpiresAt, 5*time.Second)
}

func TestCreateSuggestion_ExplicitTTL(t *testing.T) {
	svc, _ := setupTest(t, nil)

	sug, err := svc.CreateSuggestion(SuggestionInput{
		UserID:           "user-1",
		Ticker:           "SOL",
		Signal:           models.SignalSell,
		ExpiresInMinutes: 5,
	})

	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), sug.ExpiresAt, 5*time.Second)
}

func TestCreateSuggestion_InvalidSignal(t *testing.T) {
	svc, _ := setupTest(t, nil)

	_, err := svc.CreateSuggestion(SuggestionInput{UserID: "user-1", Ticker: "SOL", Signal: "MOON"})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCreateSuggestion_KillSwitchBlocks(t *testing.T) {
	svc, _ := setupTest(t, nil)
	_, err := svc.TriggerKillSwitch("user-1", "manual halt")
	assert.NoError(t, err)

	_, err = svc.CreateSuggestion(SuggestionInput{UserID: "user-1", Ticker: "SOL", Signal: models.SignalBuy})

	var killErr *KillSwitchActiveError
	assert.ErrorAs(t, err, &killErr)
	assert.Contains(t, killErr.Reason, "manual halt")
}

func TestApproveSuggestion(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := pendingSuggestion(t, svc, "user-1")

	approved, err := svc.ApproveSuggestion(sug.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestApproveSuggestion_KillSwitchRecheck(t *testing.T) {
	// The switch flips on between creation and approval; approve must fail.
	svc, _ := setupTest(t, nil)
	sug := pendingSuggestion(t, svc, "user-1")

	_, err := svc.TriggerKillSwitch("user-1", "loss limit")
	assert.NoError(t, err)

	_, err = svc.ApproveSuggestion(sug.ID)

	var killErr *KillSwitchActiveError
	assert.ErrorAs(t, err, &killErr)
}

func TestRejectSuggestion_FoldsReason(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := pendingSuggestion(t, svc, "user-1")

	rejected, err := svc.RejectSuggestion(sug.ID, "too volatile")

	assert.NoError(t, err)
	assert.Equal(t, models.SuggestionRejected, rejected.Status)
	assert.Equal(t, "Rejected: too volatile", rejected.Rationale)
	assert.NotNil(t, rejected.RejectedAt)
}

func TestSuggestion_SingleTerminalTransition(t *testing.T) {
	svc, _ := setupTest(t, nil)

	// rejected is terminal
	sug := pendingSuggestion(t, svc, "user-1")
	_, err := svc.RejectSuggestion(sug.ID, "")
	assert.NoError(t, err)

	var conflictErr *StateConflictError
	_, err = svc.ApproveSuggestion(sug.ID)
	assert.ErrorAs(t, err, &conflictErr)
	_, err = svc.RejectSuggestion(sug.ID, "again")
	assert.ErrorAs(t, err, &conflictErr)

	// approved is not terminal, but no longer pending either
	sug2 := pendingSuggestion(t, svc, "user-1")
	_, err = svc.ApproveSuggestion(sug2.ID)
	assert.NoError(t, err)
	_, err = svc.RejectSuggestion(sug2.ID, "")
	assert.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, err.Error(), "approved")
}

func TestExpireSuggestions(t *testing.T) {
	svc, db := setupTest(t, nil)

	stale := pendingSuggestion(t, svc, "user-1")
	fresh := pendingSuggestion(t, svc, "user-1")
	approved := pendingSuggestion(t, svc, "user-1")
	_, err := svc.ApproveSuggestion(approved.ID)
	assert.NoError(t, err)

	// Backdate one pending suggestion past its expiry.
	err = db.Model(&models.TradeSuggestion{}).
		Where("id = ?", stale.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	assert.NoError(t, err)

	count, err := svc.ExpireSuggestions()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, _ := svc.GetSuggestion(stale.ID)
	assert.Equal(t, models.SuggestionExpired, got.Status)
	got, _ = svc.GetSuggestion(fresh.ID)
	assert.Equal(t, models.SuggestionPending, got.Status)
	got, _ = svc.GetSuggestion(approved.ID)
	assert.Equal(t, models.SuggestionApproved, got.Status)

	// Idempotent: nothing left to expire.
	count, err = svc.ExpireSuggestions()
	assert.NoError(t, err)
	assert.Zero(t, count)

	// Expired is terminal.
	var conflictErr *StateConflictError
	_, err = svc.ApproveSuggestion(stale.ID)
	assert.ErrorAs(t, err, &conflictErr)
}

func TestListSuggestions_StatusFilter(t *testing.T) {
	svc, _ := setupTest(t, nil)

	pendingSuggestion(t, svc, "user-1")
	sug := pendingSuggestion(t, svc, "user-1")
	_, err := svc.ApproveSuggestion(sug.ID)
	assert.NoError(t, err)
	pendingSuggestion(t, svc, "user-2")

	pending, err := svc.ListSuggestions("user-1", models.SuggestionPending)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.ListSuggestions("user-1", "")
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListSuggestions("user-1", models.SuggestionStatus("bogus"))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
