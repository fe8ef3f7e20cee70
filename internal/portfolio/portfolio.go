package portfolio

import (
	"fmt"
	"sort"

	"gorm.io/gorm"

	"tradesim/internal/market"
	"tradesim/internal/models"
)

// Item is one symbol's position valued at the current simulated price.
type Item struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

// Summary is a user's portfolio: per-symbol positions plus total value.
type Summary struct {
	TotalValue float64 `json:"total_value"`
	Items      []Item  `json:"items"`
}

// Compute derives the portfolio from the user's executed trades: the signed
// sum of quantities per symbol (buys add, sells subtract), each valued at a
// fresh tick price. Positions are never stored; the trade ledger is the
// source of truth.
func Compute(db *gorm.DB, gen *market.Generator, userID uint) (*Summary, error) {
	var trades []models.Trade
	err := db.Where("user_id = ? AND status = ?", userID, models.TradeExecuted).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("could not load trades for user %d: %w", userID, err)
	}

	positions := make(map[string]float64)
	for _, trade := range trades {
		qty := trade.Quantity.InexactFloat64()
		if trade.Type == models.TradeSell {
			qty = -qty
		}
		positions[trade.Symbol] += qty
	}

	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	summary := &Summary{Items: []Item{}}
	for _, symbol := range symbols {
		quantity := positions[symbol]
		price := gen.Tick(symbol).Price
		value := quantity * price

		summary.TotalValue += value
		summary.Items = append(summary.Items, Item{
			Symbol:   symbol,
			Quantity: quantity,
			Price:    price,
			Value:    value,
		})
	}
	return summary, nil
}
