package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradesim/internal/models"
	"tradesim/internal/notify"
	"tradesim/internal/strategy"
)

// ProcessSignal realizes a signal as an executed trade. The trade create is
// a single atomic unit; the follow-up notification is published only after
// the commit and its failure does not roll anything back. Any error drops
// the signal (nil result) — the scheduler's next tick is the retry.
func (e *Engine) ProcessSignal(sig *strategy.Signal) *models.Trade {
	l := e.logger.With(
		zap.String("symbol", sig.Symbol),
		zap.String("signal_type", string(sig.Type)),
	)

	if err := validateSignal(sig); err != nil {
		l.Warn("Dropping malformed signal", zap.Error(err))
		return nil
	}

	now := time.Now()
	trade := models.Trade{
		UserID:     sig.UserID,
		StrategyID: &sig.StrategyID,
		ExchangeID: sig.ExchangeID,
		Symbol:     sig.Symbol,
		Type:       string(sig.Type),
		Quantity:   decimal.NewFromFloat(sig.Quantity),
		Price:      decimal.NewFromFloat(sig.Price),
		Status:     models.TradeExecuted,
		ExecutedAt: &now,
		OrderID:    fmt.Sprintf("auto-%05d", orderNumber()),
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&trade).Error
	})
	if err != nil {
		l.Error("Failed to persist trade, signal dropped", zap.Error(err))
		return nil
	}

	l.Info("Signal executed",
		zap.String("trade_id", trade.ID.String()),
		zap.Float64("quantity", sig.Quantity),
		zap.Float64("price", sig.Price))

	e.publishTrade(&trade, sig.Reason)
	return &trade
}

// ExecuteTrade places a direct (non-strategy) trade at the current simulated
// price for the symbol.
func (e *Engine) ExecuteTrade(userID uint, symbol, tradeType string, quantity float64, exchangeID uuid.UUID, strategyID *uuid.UUID) (*models.Trade, error) {
	if symbol == "" || quantity <= 0 || userID == 0 {
		return nil, errors.New("symbol, quantity and user are required")
	}
	if tradeType != models.TradeBuy && tradeType != models.TradeSell {
		return nil, fmt.Errorf("invalid trade type %q", tradeType)
	}

	var exchange models.Exchange
	err := e.db.First(&exchange, "id = ?", exchangeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("exchange %s: %w", exchangeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load exchange %s: %w", exchangeID, err)
	}

	price := e.market.Tick(symbol).Price
	now := time.Now()
	trade := models.Trade{
		UserID:     userID,
		StrategyID: strategyID,
		ExchangeID: exchange.ID,
		Symbol:     symbol,
		Type:       tradeType,
		Quantity:   decimal.NewFromFloat(quantity),
		Price:      decimal.NewFromFloat(price),
		Status:     models.TradeExecuted,
		ExecutedAt: &now,
		OrderID:    fmt.Sprintf("sim-%05d", orderNumber()),
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&trade).Error
	})
	if err != nil {
		return nil, fmt.Errorf("could not persist trade: %w", err)
	}

	e.publishTrade(&trade, "Manual trade execution")
	return &trade, nil
}

// publishTrade notifies the trade owner's channel. The field names mirror
// the Trade model's json tags; existing clients parse them as-is.
func (e *Engine) publishTrade(trade *models.Trade, reason string) {
	var executedAt any
	if trade.ExecutedAt != nil {
		executedAt = trade.ExecutedAt.Format(time.RFC3339)
	}

	e.publisher.Publish(notify.UserChannel(trade.UserID), map[string]any{
		"type": "trade",
		"trade": map[string]any{
			"id":          trade.ID.String(),
			"symbol":      trade.Symbol,
			"trade_type":  trade.Type,
			"quantity":    trade.Quantity.InexactFloat64(),
			"price":       trade.Price.InexactFloat64(),
			"status":      trade.Status,
			"executed_at": executedAt,
			"reason":      reason,
		},
	})
}

func validateSignal(sig *strategy.Signal) error {
	switch {
	case sig.Symbol == "":
		return errors.New("signal has no symbol")
	case sig.UserID == 0:
		return errors.New("signal has no user")
	case sig.ExchangeID == uuid.Nil:
		return errors.New("signal has no exchange")
	case sig.Type != strategy.SignalBuy && sig.Type != strategy.SignalSell:
		return fmt.Errorf("invalid signal type %q", sig.Type)
	case sig.Quantity <= 0:
		return fmt.Errorf("invalid signal quantity %f", sig.Quantity)
	case sig.Price <= 0:
		return fmt.Errorf("invalid signal price %f", sig.Price)
	}
	return nil
}

// orderNumber returns a 5-digit order reference.
func orderNumber() int {
	return rand.Intn(90000) + 10000
}
