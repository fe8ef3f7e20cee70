package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade sides.
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// Trade statuses.
const (
	TradePending   = "PENDING"
	TradeExecuted  = "EXECUTED"
	TradeCancelled = "CANCELLED"
	TradeFailed    = "FAILED"
)

// Trade is a durable execution record. Quantity and price are fixed-point
// decimals so the stored ledger does not accumulate float error; strategy
// math upstream stays in float64.
//
// The json tags are a wire contract with existing clients, do not rename.
type Trade struct {
	ID         uuid.UUID       `gorm:"type:text;primaryKey" json:"id"`
	UserID     uint            `gorm:"index;not null" json:"user_id"`
	User       User            `json:"-"`
	StrategyID *uuid.UUID      `gorm:"type:text;index" json:"strategy_id,omitempty"`
	ExchangeID uuid.UUID       `gorm:"type:text;index;not null" json:"exchange_id"`
	Symbol     string          `gorm:"index;not null" json:"symbol"`
	Type       string          `gorm:"not null" json:"trade_type"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,8)" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(18,8)" json:"price"`
	Status     string          `gorm:"default:PENDING" json:"status"`
	ExecutedAt *time.Time      `json:"executed_at"`
	OrderID    string          `json:"order_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
