package strategy

import (
	"time"

	"github.com/google/uuid"
)

// SignalType is the direction of a trade signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// Signal is a strategy's recommendation to buy or sell. It is ephemeral:
// produced at most once per (strategy, symbol) per evaluation and consumed
// immediately by a processor. A nil *Signal means "no action".
type Signal struct {
	StrategyID uuid.UUID  `json:"strategy_id"`
	ExchangeID uuid.UUID  `json:"exchange_id"`
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"signal_type"`
	Price      float64    `json:"price"`
	Quantity   float64    `json:"quantity"`
	Timestamp  time.Time  `json:"timestamp"`
	Reason     string     `json:"reason"`
	// UserID is attached by the caller, not the evaluator.
	UserID uint `json:"user_id"`
}
