package backtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tradesim/internal/market"
	"tradesim/internal/models"
)

func testStrategy(threshold float64) *models.Strategy {
	return &models.Strategy{
		ID:         uuid.New(),
		Name:       "test",
		Type:       models.StrategyMomentum,
		Parameters: models.ParamMap{"threshold": threshold},
		UserID:     1,
	}
}

func runWindow(days int) (time.Time, time.Time) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -days), end
}

func TestRun_ReportInvariants(t *testing.T) {
	// Arrange: a threshold of -1 fires a BUY on every bar with enough
	// history, so the run produces a non-trivial trade log.
	runner := NewRunner(market.NewGenerator(), zap.NewNop())
	start, end := runWindow(60)

	// Act
	result := runner.Run(testStrategy(-1), uuid.Nil, "BTC/USDT", start, end)

	// Assert: the report is internally consistent regardless of the random
	// series it ran against.
	assert.Empty(t, result.Error)
	assert.Equal(t, 10000.0, result.InitialValue)
	assert.Equal(t, len(result.Trades), result.TradeCount)
	assert.Greater(t, result.TradeCount, 0)
	assert.InDelta(t, result.FinalValue-result.InitialValue, result.ProfitLoss, 1e-9)
	assert.InDelta(t, result.ProfitLoss/result.InitialValue*100, result.ProfitLossPct, 1e-9)
	assert.GreaterOrEqual(t, result.MaxDrawdown, 0.0)

	for _, entry := range result.Trades {
		assert.GreaterOrEqual(t, entry.PortfolioValue, 0.0, "cash can never go negative")
		assert.GreaterOrEqual(t, entry.Position, 0.0, "position can never go negative")
	}
}

func TestRun_NoSignalsKeepsInitialValue(t *testing.T) {
	// An unreachable threshold means no trades and therefore no price
	// exposure: the portfolio must end exactly where it started.
	runner := NewRunner(market.NewGenerator(), zap.NewNop())
	start, end := runWindow(30)

	result := runner.Run(testStrategy(10), uuid.Nil, "ETH/USDT", start, end)

	assert.Empty(t, result.Error)
	assert.Equal(t, 0, result.TradeCount)
	assert.Empty(t, result.Trades)
	assert.Equal(t, result.InitialValue, result.FinalValue)
	assert.Zero(t, result.ProfitLoss)
	assert.Zero(t, result.MaxDrawdown)
}

func TestRun_ShortHistoryProducesNoTrades(t *testing.T) {
	// A 5-day window never accumulates the 12 returns momentum needs, so
	// every evaluation declines.
	runner := NewRunner(market.NewGenerator(), zap.NewNop())
	start, end := runWindow(5)

	result := runner.Run(testStrategy(-1), uuid.Nil, "BTC/USDT", start, end)

	assert.Empty(t, result.Error)
	assert.Equal(t, 0, result.TradeCount)
	assert.Equal(t, result.InitialValue, result.FinalValue)
}

func TestRun_InvalidWindowDegradesToErrorResult(t *testing.T) {
	runner := NewRunner(market.NewGenerator(), zap.NewNop())
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	result := runner.Run(testStrategy(-1), uuid.Nil, "BTC/USDT", end, end)

	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Trades)
	assert.Equal(t, result.InitialValue, result.FinalValue)
}
