package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradesim/internal/models"
	"tradesim/internal/strategy"
)

// RunStrategies evaluates every active strategy (optionally filtered to one
// user) and processes the resulting signals. One strategy's failure never
// stops the sweep; errors are logged and the remaining strategies still run.
func (e *Engine) RunStrategies(userID *uint) []strategy.Signal {
	query := e.db.Where("is_active = ?", true)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var strategies []models.Strategy
	if err := query.Find(&strategies).Error; err != nil {
		e.logger.Error("Could not load active strategies", zap.Error(err))
		return nil
	}

	now := time.Now()
	var signals []strategy.Signal
	for i := range strategies {
		strat := &strategies[i]
		if !e.claimRun(strat.ID, now) {
			continue
		}
		signals = append(signals, e.evaluateStrategy(strat)...)
	}
	return signals
}

// RunStrategy evaluates one strategy on demand. It stamps the throttle so a
// scheduler sweep right after an interactive run does not double-execute.
func (e *Engine) RunStrategy(strategyID uuid.UUID) ([]strategy.Signal, error) {
	var strat models.Strategy
	err := e.db.First(&strat, "id = ?", strategyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("strategy %s: %w", strategyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load strategy %s: %w", strategyID, err)
	}

	e.mu.Lock()
	e.lastRun[strat.ID] = time.Now()
	e.mu.Unlock()

	return e.evaluateStrategy(&strat), nil
}

// evaluateStrategy runs one strategy across the owner's active exchanges and
// the fixed symbol set, processing every signal it produces.
func (e *Engine) evaluateStrategy(strat *models.Strategy) []strategy.Signal {
	l := e.logger.With(zap.String("strategy", strat.ID.String()), zap.String("type", strat.Type))

	var exchanges []models.Exchange
	if err := e.db.Where("user_id = ? AND is_active = ?", strat.UserID, true).Find(&exchanges).Error; err != nil {
		l.Error("Could not load exchanges", zap.Error(err))
		return nil
	}
	if len(exchanges) == 0 {
		l.Debug("No active exchanges for strategy owner")
		return nil
	}

	provider := strategy.LiveProvider{Generator: e.market}

	var signals []strategy.Signal
	for _, exchange := range exchanges {
		for _, symbol := range tradeSymbols {
			sig, err := strategy.Evaluate(strat, exchange.ID, symbol, provider)
			if err != nil {
				l.Error("Strategy evaluation failed", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			if sig == nil {
				continue
			}

			sig.UserID = strat.UserID
			signals = append(signals, *sig)
			e.ProcessSignal(sig)
		}
	}
	return signals
}
