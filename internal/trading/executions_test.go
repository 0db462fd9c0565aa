package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"auto-trade-engine-go/internal/exchange"
	"auto-trade-engine-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func approvedSuggestion(t *testing.T, svc *Service, userID string) *models.TradeSuggestion {
	sug := pendingSuggestion(t, svc, userID)
	approved, err := svc.ApproveSuggestion(sug.ID)
	assert.NoError(t, err)
	return approved
}

func seedConnection(t *testing.T, svc *Service, userID string) *models.ExchangeConnection {
	now := time.Now()
	conn := models.ExchangeConnection{
		ID:            "conn-1",
		UserID:        userID,
		Exchange:      "binance",
		IsActive:      true,
		LastValidated: &now,
	}
	assert.NoError(t, svc.db.Create(&conn).Error)
	return &conn
}

func TestExecuteTrade_RequiresApproved(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := pendingSuggestion(t, svc, "user-1")

	_, err := svc.ExecuteTrade(context.Background(), sug.ID, "")

	var conflictErr *StateConflictError
	assert.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, err.Error(), "pending")
}

func TestExecuteTrade_PaperWithoutConnection(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := approvedSuggestion(t, svc, "user-1")

	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")

	assert.NoError(t, err)
	assert.Equal(t, models.ExecutionOpen, execution.Status)
	assert.Equal(t, models.SideBuy, execution.Side)
	assert.Equal(t, 100.0, execution.SizeUsd)
	assert.Equal(t, 100.0, execution.EntryPrice)
	assert.Empty(t, execution.ExchangeOrderID)
	assert.Empty(t, execution.ErrorMessage)

	got, err := svc.GetSuggestion(sug.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SuggestionExecuted, got.Status)
}

func TestExecuteTrade_LiveOrder(t *testing.T) {
	conn := new(MockConnector)
	svc, _ := setupTest(t, conn)
	seedConnection(t, svc, "user-1")
	sug := approvedSuggestion(t, svc, "user-1")

	conn.On("CreateOrder", "user-1", "conn-1", mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Symbol == "SOL" && req.Side == string(models.SideBuy) && req.Quantity == 1.0
	})).Return(&exchange.OrderResult{OrderID: "ord-42", AvgPrice: "101.5", Status: "filled"}, nil)

	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")

	assert.NoError(t, err)
	assert.Equal(t, "ord-42", execution.ExchangeOrderID)
	// Entry price follows the broker's fill, not the suggestion.
	assert.Equal(t, 101.5, execution.EntryPrice)
	assert.Equal(t, "conn-1", execution.ExchangeConnectionID)
	conn.AssertExpectations(t)
}

func TestExecuteTrade_ConnectorFailureDegradesToPaper(t *testing.T) {
	conn := new(MockConnector)
	svc, _ := setupTest(t, conn)
	seedConnection(t, svc, "user-1")
	sug := approvedSuggestion(t, svc, "user-1")

	conn.On("CreateOrder", "user-1", "conn-1", mock.Anything).
		Return(nil, errors.New("gateway unavailable"))

	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")

	// The execution survives the broker failure as a paper trade.
	assert.NoError(t, err)
	assert.Equal(t, models.ExecutionOpen, execution.Status)
	assert.Empty(t, execution.ExchangeOrderID)
	assert.Contains(t, execution.ErrorMessage, "gateway unavailable")
	assert.Equal(t, 100.0, execution.EntryPrice)
}

func TestExecuteTrade_ConcurrentTradeCap(t *testing.T) {
	svc, _ := setupTest(t, nil)

	// Default cap is 3 open trades.
	for i := 0; i < 3; i++ {
		sug := approvedSuggestion(t, svc, "user-1")
		_, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
		assert.NoError(t, err)
	}

	fourth := approvedSuggestion(t, svc, "user-1")
	_, err := svc.ExecuteTrade(context.Background(), fourth.ID, "")

	var riskErr *RiskLimitExceededError
	assert.ErrorAs(t, err, &riskErr)
	assert.Contains(t, riskErr.Reason, "3 open trades")

	// The denial rolls back: no orphan execution, suggestion still approved.
	open, err := svc.ListTrades("user-1", models.ExecutionOpen)
	assert.NoError(t, err)
	assert.Len(t, open, 3)
	got, err := svc.GetSuggestion(fourth.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, got.Status)
}

func TestExecuteTrade_RiskDenialNeverReachesExchange(t *testing.T) {
	conn := new(MockConnector)
	svc, _ := setupTest(t, conn)
	seedConnection(t, svc, "user-1")

	conn.On("CreateOrder", "user-1", "conn-1", mock.Anything).
		Return(&exchange.OrderResult{OrderID: "ord-1", AvgPrice: "100", Status: "filled"}, nil)

	for i := 0; i < 3; i++ {
		sug := approvedSuggestion(t, svc, "user-1")
		_, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
		assert.NoError(t, err)
	}

	fourth := approvedSuggestion(t, svc, "user-1")
	_, err := svc.ExecuteTrade(context.Background(), fourth.ID, "")

	var riskErr *RiskLimitExceededError
	assert.ErrorAs(t, err, &riskErr)
	// The denied trade must not have placed a live order.
	conn.AssertNumberOfCalls(t, "CreateOrder", 3)
	open, err := svc.ListTrades("user-1", models.ExecutionOpen)
	assert.NoError(t, err)
	assert.Len(t, open, 3)
	got, err := svc.GetSuggestion(fourth.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, got.Status)
}

func TestCloseTrade_BuyPnl(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := approvedSuggestion(t, svc, "user-1")
	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
	assert.NoError(t, err)

	closed, err := svc.CloseTrade(execution.ID, 110)

	assert.NoError(t, err)
	assert.Equal(t, models.ExecutionClosed, closed.Status)
	assert.Equal(t, 110.0, closed.ExitPrice)
	assert.Equal(t, 10.0, closed.RealizedPnlPercent)
	assert.Equal(t, 10.0, closed.RealizedPnlUsd)
	assert.NotNil(t, closed.ClosedAt)
}

func TestCloseTrade_SellPnl(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug, err := svc.CreateSuggestion(SuggestionInput{
		UserID:     "user-1",
		Ticker:     "SOL",
		Signal:     models.SignalSell,
		EntryPrice: 100,
	})
	assert.NoError(t, err)
	_, err = svc.ApproveSuggestion(sug.ID)
	assert.NoError(t, err)
	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, models.SideSell, execution.Side)

	// Price moved against the short.
	closed, err := svc.CloseTrade(execution.ID, 110)

	assert.NoError(t, err)
	assert.Equal(t, -10.0, closed.RealizedPnlPercent)
	assert.Equal(t, -10.0, closed.RealizedPnlUsd)
}

func TestCloseTrade_Rounding(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug, err := svc.CreateSuggestion(SuggestionInput{
		UserID:     "user-1",
		Ticker:     "SOL",
		Signal:     models.SignalBuy,
		EntryPrice: 3,
	})
	assert.NoError(t, err)
	_, err = svc.ApproveSuggestion(sug.ID)
	assert.NoError(t, err)
	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
	assert.NoError(t, err)

	// (3.1-3)/3 = 3.3333...%; percent rounds to 4 decimals, usd to 2.
	closed, err := svc.CloseTrade(execution.ID, 3.1)

	assert.NoError(t, err)
	assert.Equal(t, 3.3333, closed.RealizedPnlPercent)
	assert.Equal(t, 3.33, closed.RealizedPnlUsd)
}

func TestCloseTrade_OnlyOnce(t *testing.T) {
	svc, _ := setupTest(t, nil)
	sug := approvedSuggestion(t, svc, "user-1")
	execution, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
	assert.NoError(t, err)

	_, err = svc.CloseTrade(execution.ID, 110)
	assert.NoError(t, err)

	_, err = svc.CloseTrade(execution.ID, 120)
	var conflictErr *StateConflictError
	assert.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, err.Error(), "closed")
}

func TestCloseTrade_RejectsNonPositiveExit(t *testing.T) {
	svc, _ := setupTest(t, nil)

	_, err := svc.CloseTrade("exec_whatever", 0)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestRiskCheck_DryRun(t *testing.T) {
	svc, _ := setupTest(t, nil)

	result, err := svc.RiskCheck("user-1", 100)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = svc.RiskCheck("user-1", 100.01)
	assert.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestTradeHistory_Limit(t *testing.T) {
	svc, _ := setupTest(t, nil)

	for i := 0; i < 3; i++ {
		sug := approvedSuggestion(t, svc, "user-1")
		_, err := svc.ExecuteTrade(context.Background(), sug.ID, "")
		assert.NoError(t, err)
		// Stay under the concurrent cap.
		execs, err := svc.ListTrades("user-1", models.ExecutionOpen)
		assert.NoError(t, err)
		_, err = svc.CloseTrade(execs[0].ID, 100)
		assert.NoError(t, err)
	}

	history, err := svc.TradeHistory("user-1", 2)
	assert.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = svc.TradeHistory("user-1", 0)
	assert.NoError(t, err)
	assert.Len(t, history, 3)
}
