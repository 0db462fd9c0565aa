package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"auto-trade-engine-go/internal/exchange"
	"auto-trade-engine-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sideFromSignal derives the order side: every BUY-flavored signal buys,
// everything else sells.
func sideFromSignal(signal string) models.TradeSide {
	if strings.Contains(signal, "BUY") {
		return models.SideBuy
	}
	return models.SideSell
}

// resolveConnection picks the exchange connection for an execution: the one
// supplied by the caller, else the user's most recently validated active
// connection, else none (paper trade).
func (s *Service) resolveConnection(userID, connectionID string) string {
	if connectionID != "" {
		return connectionID
	}
	var conn models.ExchangeConnection
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_validated desc").
		First(&conn).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Failed to resolve exchange connection", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	return conn.ID
}

// placeOrder attempts the external market order with an explicit timeout.
// Failure is captured, not propagated: the execution is still recorded as a
// paper trade so the audit trail survives a flaky exchange.
func (s *Service) placeOrder(ctx context.Context, sug *models.TradeSuggestion, side models.TradeSide, connectionID string) (orderID string, fillPrice float64, errMsg string) {
	quantity := 0.0
	if sug.EntryPrice > 0 {
		quantity = sug.SuggestedSizeUsd / sug.EntryPrice
	}

	callCtx, cancel := context.WithTimeout(ctx, s.orderTO)
	defer cancel()

	order, err := s.exchange.CreateOrder(callCtx, sug.UserID, connectionID, exchange.OrderRequest{
		Symbol:   sug.Ticker,
		Side:     string(side),
		Type:     exchange.OrderTypeMarket,
		Quantity: quantity,
	})
	if err != nil {
		extErr := &ExternalExecutionError{Err: err}
		s.logger.Warn("Exchange execution error, recording paper trade",
			zap.String("suggestion_id", sug.ID),
			zap.Error(extErr),
		)
		return "", 0, extErr.Error()
	}

	s.logger.Info("Order placed on exchange",
		zap.String("suggestion_id", sug.ID),
		zap.String("exchange_order_id", order.OrderID),
	)
	return order.OrderID, order.FillPrice(), ""
}

// ExecuteTrade turns an approved suggestion into an open execution. Risk
// limits are checked against live counts before any order is placed; the
// store transaction then re-checks them together with the execution insert
// and the suggestion flip, closing the check-then-insert gap under
// concurrent executes for the same user. A risk denial leaves the
// suggestion approved.
func (s *Service) ExecuteTrade(ctx context.Context, suggestionID, connectionID string) (*models.TradeExecution, error) {
	suggestion, err := s.GetSuggestion(suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.SuggestionApproved {
		return nil, &StateConflictError{Op: "execute", Entity: "suggestion", Status: string(suggestion.Status)}
	}

	profile, err := s.GetOrCreateProfile(suggestion.UserID)
	if err != nil {
		return nil, err
	}

	// Pre-check against live counts so a doomed execution never reaches the
	// exchange. The transaction below re-validates before the insert.
	precheck, err := s.RiskCheck(suggestion.UserID, suggestion.SuggestedSizeUsd)
	if err != nil {
		return nil, err
	}
	if !precheck.Allowed {
		return nil, &RiskLimitExceededError{Reason: precheck.Reason}
	}

	side := sideFromSignal(suggestion.Signal)
	connectionID = s.resolveConnection(suggestion.UserID, connectionID)

	// The slow external call happens before the transaction so it can never
	// hold the store's write lock.
	var orderID, errMsg string
	entryPrice := suggestion.EntryPrice
	if connectionID != "" && s.exchange != nil {
		var fill float64
		orderID, fill, errMsg = s.placeOrder(ctx, suggestion, side, connectionID)
		if fill > 0 {
			entryPrice = fill
		}
	} else {
		s.logger.Info("No exchange connection, recording paper trade",
			zap.String("suggestion_id", suggestionID),
			zap.String("user_id", suggestion.UserID),
		)
	}

	execution := models.TradeExecution{
		ID:                   newID("exec"),
		UserID:               suggestion.UserID,
		SuggestionID:         suggestion.ID,
		ExchangeConnectionID: connectionID,
		Ticker:               suggestion.Ticker,
		Chain:                suggestion.Chain,
		Side:                 side,
		SizeUsd:              suggestion.SuggestedSizeUsd,
		EntryPrice:           entryPrice,
		Status:               models.ExecutionOpen,
		Mode:                 profile.Mode,
		ExchangeOrderID:      orderID,
		ErrorMessage:         errMsg,
		OpenedAt:             time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var openCount int64
		if err := tx.Model(&models.TradeExecution{}).
			Where("user_id = ? AND status = ?", suggestion.UserID, models.ExecutionOpen).
			Count(&openCount).Error; err != nil {
			return fmt.Errorf("failed to count open trades: %w", err)
		}

		pnl, err := todaysRealizedPnl(tx, suggestion.UserID, time.Now())
		if err != nil {
			return err
		}

		check := CheckRiskLimits(profile, suggestion.SuggestedSizeUsd, int(openCount), pnl)
		if !check.Allowed {
			return &RiskLimitExceededError{Reason: check.Reason}
		}

		if err := tx.Create(&execution).Error; err != nil {
			return fmt.Errorf("failed to persist execution: %w", err)
		}

		res := tx.Model(&models.TradeSuggestion{}).
			Where("id = ? AND status = ?", suggestionID, models.SuggestionApproved).
			Update("status", models.SuggestionExecuted)
		if res.Error != nil {
			return fmt.Errorf("failed to mark suggestion executed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Someone else consumed the suggestion first; roll back the insert.
			return &StateConflictError{Op: "execute", Entity: "suggestion", Status: string(models.SuggestionExecuted)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mode := "live"
	if orderID == "" {
		mode = "paper"
	}
	s.metrics.Executions.WithLabelValues(mode).Inc()
	s.logger.Info("Trade executed",
		zap.String("execution_id", execution.ID),
		zap.String("suggestion_id", suggestionID),
		zap.String("side", string(side)),
		zap.String("ticker", suggestion.Ticker),
		zap.Float64("size_usd", execution.SizeUsd),
		zap.String("mode", mode),
	)

	if _, err := s.UpdateDailySnapshot(suggestion.UserID); err != nil {
		s.logger.Error("Failed to update daily snapshot after execution", zap.Error(err))
	}

	return &execution, nil
}

// CloseTrade closes an open execution at the given exit price, realizing
// PnL. For a buy: pnl% = (exit-entry)/entry*100; for a sell the sign flips.
func (s *Service) CloseTrade(executionID string, exitPrice float64) (*models.TradeExecution, error) {
	if exitPrice <= 0 {
		return nil, &ValidationError{Msg: "exit price must be positive"}
	}

	execution, err := s.GetTrade(executionID)
	if err != nil {
		return nil, err
	}
	if execution.Status != models.ExecutionOpen {
		return nil, &StateConflictError{Op: "close", Entity: "trade", Status: string(execution.Status)}
	}

	var pnlPercent float64
	if execution.EntryPrice > 0 {
		if execution.Side == models.SideBuy {
			pnlPercent = (exitPrice - execution.EntryPrice) / execution.EntryPrice * 100
		} else {
			pnlPercent = (execution.EntryPrice - exitPrice) / execution.EntryPrice * 100
		}
	}
	pnlUsd := execution.SizeUsd * pnlPercent / 100

	pnlPercent = math.Round(pnlPercent*10000) / 10000
	pnlUsd = math.Round(pnlUsd*100) / 100

	now := time.Now()
	res := s.db.Model(&models.TradeExecution{}).
		Where("id = ? AND status = ?", executionID, models.ExecutionOpen).
		Updates(map[string]interface{}{
			"status":               models.ExecutionClosed,
			"exit_price":           exitPrice,
			"realized_pnl_usd":     pnlUsd,
			"realized_pnl_percent": pnlPercent,
			"closed_at":            now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to close trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := s.GetTrade(executionID)
		if err != nil {
			return nil, err
		}
		return nil, &StateConflictError{Op: "close", Entity: "trade", Status: string(current.Status)}
	}

	s.metrics.Closed.Inc()
	s.logger.Info("Trade closed",
		zap.String("execution_id", executionID),
		zap.Float64("pnl_usd", pnlUsd),
		zap.Float64("pnl_percent", pnlPercent),
	)

	if _, err := s.UpdateDailySnapshot(execution.UserID); err != nil {
		s.logger.Error("Failed to update daily snapshot after close", zap.Error(err))
	}

	return s.GetTrade(executionID)
}

// GetTrade loads an execution by id.
func (s *Service) GetTrade(executionID string) (*models.TradeExecution, error) {
	var execution models.TradeExecution
	if err := s.db.Where("id = ?", executionID).First(&execution).Error; err != nil {
		return nil, notFoundOr(err, "execution")
	}
	return &execution, nil
}

// ListTrades returns the user's executions, newest first, optionally
// filtered by status.
func (s *Service) ListTrades(userID string, status models.ExecutionStatus) ([]models.TradeExecution, error) {
	query := s.db.Where("user_id = ?", userID).Order("opened_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var executions []models.TradeExecution
	if err := query.Find(&executions).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return executions, nil
}

// TradeHistory returns the user's most recent executions.
func (s *Service) TradeHistory(userID string, limit int) ([]models.TradeExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var executions []models.TradeExecution
	err := s.db.Where("user_id = ?", userID).
		Order("opened_at desc").
		Limit(limit).
		Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trade history: %w", err)
	}
	return executions, nil
}

// RiskCheck evaluates the user's risk limits against a candidate trade size
// using live counts. Used by the dry-run endpoint; ExecuteTrade performs
// its own check inside the store transaction.
func (s *Service) RiskCheck(userID string, tradeSizeUsd float64) (RiskCheckResult, error) {
	profile, err := s.GetOrCreateProfile(userID)
	if err != nil {
		return RiskCheckResult{}, err
	}

	var openCount int64
	if err := s.db.Model(&models.TradeExecution{}).
		Where("user_id = ? AND status = ?", userID, models.ExecutionOpen).
		Count(&openCount).Error; err != nil {
		return RiskCheckResult{}, fmt.Errorf("failed to count open trades: %w", err)
	}

	pnl, err := todaysRealizedPnl(s.db, userID, time.Now())
	if err != nil {
		return RiskCheckResult{}, err
	}

	return CheckRiskLimits(profile, tradeSizeUsd, int(openCount), pnl), nil
}
