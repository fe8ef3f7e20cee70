package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradesim/internal/config"
	"tradesim/internal/market"
	"tradesim/internal/models"
	"tradesim/internal/strategy"
)

// MockPublisher is a mock implementation of notify.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(channel string, event any) {
	m.Called(channel, event)
}

// setupTest creates a full test environment with an in-memory DB, a seeded
// user and exchange, and a mock publisher.
func setupTest(t *testing.T) (*Engine, *gorm.DB, *MockPublisher, *models.Exchange) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Strategy{}, &models.Exchange{}, &models.Trade{})
	assert.NoError(t, err)

	user := models.User{Username: "alice"}
	assert.NoError(t, db.Create(&user).Error)

	exchange := models.Exchange{Name: "sim", Type: models.ExchangeSimulated, UserID: user.ID, IsActive: true}
	assert.NoError(t, db.Create(&exchange).Error)

	pub := new(MockPublisher)
	eng := NewEngine(db, market.NewGenerator(), pub, config.Trading{ThrottleSeconds: 300}, zap.NewNop())
	return eng, db, pub, &exchange
}

// alwaysSignal returns a momentum strategy whose threshold is low enough
// that any candle series trips it.
func alwaysSignal(db *gorm.DB, userID uint) *models.Strategy {
	strat := &models.Strategy{
		Name:       "always",
		Type:       models.StrategyMomentum,
		Parameters: models.ParamMap{"threshold": -1.0},
		UserID:     userID,
		IsActive:   true,
	}
	db.Create(strat)
	return strat
}

// neverSignal returns a momentum strategy whose threshold can never be
// crossed by the bounded synthetic series.
func neverSignal(db *gorm.DB, userID uint) *models.Strategy {
	strat := &models.Strategy{
		Name:       "never",
		Type:       models.StrategyMomentum,
		Parameters: models.ParamMap{"threshold": 10.0},
		UserID:     userID,
		IsActive:   true,
	}
	db.Create(strat)
	return strat
}

func TestProcessSignal_CreatesTradeAndNotifies(t *testing.T) {
	// Arrange
	eng, db, pub, exchange := setupTest(t)
	pub.On("Publish", "trading_user_1", mock.Anything).Return()

	sig := &strategy.Signal{
		StrategyID: uuid.New(),
		ExchangeID: exchange.ID,
		Symbol:     "BTC/USDT",
		Type:       strategy.SignalBuy,
		Price:      50123.45,
		Quantity:   0.25,
		Timestamp:  time.Now(),
		Reason:     "test",
		UserID:     1,
	}

	// Act
	trade := eng.ProcessSignal(sig)

	// Assert
	assert.NotNil(t, trade)
	assert.Equal(t, models.TradeExecuted, trade.Status)
	assert.NotNil(t, trade.ExecutedAt)
	assert.Regexp(t, `^auto-\d{5}$`, trade.OrderID)
	assert.Equal(t, "0.25", trade.Quantity.String())

	var count int64
	db.Model(&models.Trade{}).Count(&count)
	assert.EqualValues(t, 1, count)
	pub.AssertExpectations(t)
}

func TestProcessSignal_MalformedSignalDropped(t *testing.T) {
	// Arrange: signal without a symbol must be dropped, not persisted.
	eng, db, pub, exchange := setupTest(t)

	sig := &strategy.Signal{
		StrategyID: uuid.New(),
		ExchangeID: exchange.ID,
		Type:       strategy.SignalBuy,
		Price:      100,
		Quantity:   1,
		UserID:     1,
	}

	// Act
	trade := eng.ProcessSignal(sig)

	// Assert
	assert.Nil(t, trade)
	var count int64
	db.Model(&models.Trade{}).Count(&count)
	assert.EqualValues(t, 0, count)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestClaimRun_ThrottleWindow(t *testing.T) {
	eng, _, _, _ := setupTest(t)
	id := uuid.New()
	now := time.Now()

	assert.True(t, eng.claimRun(id, now))
	assert.False(t, eng.claimRun(id, now.Add(100*time.Second)))
	assert.False(t, eng.claimRun(id, now.Add(299*time.Second)))
	assert.True(t, eng.claimRun(id, now.Add(301*time.Second)))
}

func TestRunStrategies_SecondTickThrottled(t *testing.T) {
	// Arrange
	eng, db, pub, _ := setupTest(t)
	pub.On("Publish", mock.Anything, mock.Anything).Return()
	alwaysSignal(db, 1)

	// Act
	first := eng.RunStrategies(nil)
	var afterFirst int64
	db.Model(&models.Trade{}).Count(&afterFirst)

	second := eng.RunStrategies(nil)
	var afterSecond int64
	db.Model(&models.Trade{}).Count(&afterSecond)

	// Assert: one signal per symbol on the first sweep, nothing on the
	// second because the strategy ran under 300s ago.
	assert.Len(t, first, 3)
	assert.EqualValues(t, 3, afterFirst)
	assert.Empty(t, second)
	assert.Equal(t, afterFirst, afterSecond)
}

func TestRunStrategies_UserFilter(t *testing.T) {
	// Arrange
	eng, db, pub, _ := setupTest(t)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	bob := models.User{Username: "bob"}
	assert.NoError(t, db.Create(&bob).Error)
	bobExchange := models.Exchange{Name: "sim2", Type: models.ExchangeSimulated, UserID: bob.ID, IsActive: true}
	assert.NoError(t, db.Create(&bobExchange).Error)

	alwaysSignal(db, 1)
	bobStrat := alwaysSignal(db, bob.ID)

	// Act: only bob's strategies run.
	signals := eng.RunStrategies(&bob.ID)

	// Assert
	assert.Len(t, signals, 3)
	for _, sig := range signals {
		assert.Equal(t, bob.ID, sig.UserID)
		assert.Equal(t, bobStrat.ID, sig.StrategyID)
	}
}

func TestRunStrategies_NoActiveExchangeIsNotFatal(t *testing.T) {
	// Arrange: carol has an active strategy but no exchange; alice's
	// strategy must still run.
	eng, db, pub, _ := setupTest(t)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	carol := models.User{Username: "carol"}
	assert.NoError(t, db.Create(&carol).Error)
	alwaysSignal(db, carol.ID)
	alwaysSignal(db, 1)

	// Act
	signals := eng.RunStrategies(nil)

	// Assert
	assert.Len(t, signals, 3)
	for _, sig := range signals {
		assert.EqualValues(t, 1, sig.UserID)
	}
}

func TestRunStrategies_QuietStrategyProducesNoTrades(t *testing.T) {
	eng, db, pub, _ := setupTest(t)
	neverSignal(db, 1)

	signals := eng.RunStrategies(nil)

	assert.Empty(t, signals)
	var count int64
	db.Model(&models.Trade{}).Count(&count)
	assert.EqualValues(t, 0, count)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRunStrategy_NotFound(t *testing.T) {
	eng, _, _, _ := setupTest(t)

	signals, err := eng.RunStrategy(uuid.New())

	assert.Nil(t, signals)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunStrategy_BypassesAndStampsThrottle(t *testing.T) {
	// Arrange
	eng, db, pub, _ := setupTest(t)
	pub.On("Publish", mock.Anything, mock.Anything).Return()
	strat := alwaysSignal(db, 1)

	// Act: interactive run, then a scheduler sweep right after.
	signals, err := eng.RunStrategy(strat.ID)
	swept := eng.RunStrategies(nil)

	// Assert: the sweep skips the strategy the interactive run stamped.
	assert.NoError(t, err)
	assert.Len(t, signals, 3)
	assert.Empty(t, swept)
}

func TestExecuteTrade_Success(t *testing.T) {
	// Arrange
	eng, db, pub, exchange := setupTest(t)
	pub.On("Publish", "trading_user_1", mock.Anything).Return()

	// Act
	trade, err := eng.ExecuteTrade(1, "ETH/USDT", models.TradeBuy, 2.5, exchange.ID, nil)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, trade)
	assert.Regexp(t, `^sim-\d{5}$`, trade.OrderID)
	assert.Equal(t, models.TradeExecuted, trade.Status)
	// Price comes from a fresh tick within ±0.5% of the ETH base.
	assert.InDelta(t, 3000.0, trade.Price.InexactFloat64(), 3000.0*0.005)

	var count int64
	db.Model(&models.Trade{}).Count(&count)
	assert.EqualValues(t, 1, count)
	pub.AssertExpectations(t)
}

func TestExecuteTrade_UnknownExchange(t *testing.T) {
	eng, _, _, _ := setupTest(t)

	trade, err := eng.ExecuteTrade(1, "BTC/USDT", models.TradeBuy, 1, uuid.New(), nil)

	assert.Nil(t, trade)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteTrade_InvalidType(t *testing.T) {
	eng, _, _, exchange := setupTest(t)

	trade, err := eng.ExecuteTrade(1, "BTC/USDT", "HOLD", 1, exchange.ID, nil)

	assert.Nil(t, trade)
	assert.Error(t, err)
}
