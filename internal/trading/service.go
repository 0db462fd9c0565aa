package trading

import (
	"errors"
	"fmt"
	"time"

	"auto-trade-engine-go/internal/config"
	"auto-trade-engine-go/internal/exchange"
	"auto-trade-engine-go/internal/metrics"
	"auto-trade-engine-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the trade-suggestion lifecycle and risk-enforcement engine.
// It is constructed once per process with an injected store handle and
// exchange connector; all entity state lives in the store, so every
// operation re-reads then writes.
type Service struct {
	db       *gorm.DB
	exchange exchange.Connector
	cfg      config.Trading
	orderTO  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService creates the engine. The exchange connector may be nil, in
// which case every execution is recorded as a paper trade.
func NewService(db *gorm.DB, conn exchange.Connector, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		db:       db,
		exchange: conn,
		cfg:      cfg.Trading,
		orderTO:  cfg.Exchange.OrderTimeout,
		logger:   logger,
		metrics:  m,
	}
}

// newID builds a prefixed entity id, e.g. "sug_5f3a...".
func newID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// startOfDay truncates t to midnight in its location. Daily risk accounting
// groups by calendar day, not by rolling 24h windows.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// notFoundOr maps gorm's record-not-found onto the engine's sentinel and
// wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// todaysRealizedPnl reads today's snapshot PnL for a user from the given
// handle (which may be a transaction). No snapshot yet means zero.
func todaysRealizedPnl(tx *gorm.DB, userID string, now time.Time) (float64, error) {
	var snap models.DailyRiskSnapshot
	err := tx.Where("user_id = ? AND snapshot_date >= ?", userID, startOfDay(now)).
		Order("created_at desc").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily snapshot: %w", err)
	}
	return snap.RealizedPnlUsd, nil
}
