package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Exchange types.
const (
	ExchangeBinance   = "BINANCE"
	ExchangeCoinbase  = "COINBASE"
	ExchangeKraken    = "KRAKEN"
	ExchangeKucoin    = "KUCOIN"
	ExchangeBybit     = "BYBIT"
	ExchangeSimulated = "SIMULATED"
)

// Exchange is a user's exchange connection. Credentials are stored but never
// used by this service: all prices are simulated.
type Exchange struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Type      string    `gorm:"not null" json:"exchange_type"`
	APIKey    string    `json:"-"`
	APISecret string    `json:"-"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `json:"-"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (e *Exchange) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
