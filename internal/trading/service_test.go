package trading

import (
	"context"
	"testing"
	"time"

	"auto-trade-engine-go/internal/config"
	"auto-trade-engine-go/internal/database"
	"auto-trade-engine-go/internal/exchange"
	"auto-trade-engine-go/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockConnector is a mock implementation of the exchange.Connector interface.
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) CreateOrder(ctx context.Context, userID, connectionID string, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	args := m.Called(userID, connectionID, req)
	var result *exchange.OrderResult
	if args.Get(0) != nil {
		result = args.Get(0).(*exchange.OrderResult)
	}
	return result, args.Error(1)
}

func (m *MockConnector) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// setupTest creates an engine over a fresh in-memory database.
// Use a new, non-shared in-memory database for each test to ensure isolation.
func setupTest(t *testing.T, conn exchange.Connector) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = database.AutoMigrate(db)
	assert.NoError(t, err)

	cfg := config.Config{
		Trading: config.Trading{
			SuggestionTTLMinutes: 60,
			MilestoneTarget:      500,
		},
		Exchange: config.Exchange{
			OrderTimeout: time.Second,
		},
	}

	svc := NewService(db, conn, cfg, zap.NewNop(), metrics.New())
	return svc, db
}
