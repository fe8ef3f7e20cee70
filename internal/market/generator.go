package market

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// Timeframes supported by the candle generator. Anything else falls back to
// one-minute bars.
const (
	Timeframe1m = "1m"
	Timeframe1h = "1h"
	Timeframe1d = "1d"
)

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Ticker is a single point-in-time quote.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderBook is a simulated depth snapshot: ten [price, size] levels per side.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Bids      [][2]float64 `json:"bids"`
	Asks      [][2]float64 `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// Generator produces synthetic market data around fixed base prices. All
// draws are independent bounded uniform perturbations; intraday candles are
// deliberately not a random walk, so consecutive bars carry no
// autocorrelation. Backtests use RandomWalk instead.
type Generator struct{}

// NewGenerator creates a synthetic market data generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// BasePrice returns the fixed reference price for a symbol.
func (g *Generator) BasePrice(symbol string) float64 {
	switch symbol {
	case "ETH/USDT":
		return 3000.0
	case "SOL/USDT":
		return 100.0
	default: // BTC/USDT and anything unknown
		return 50000.0
	}
}

// Tick returns a fresh quote within ±0.5% of the symbol's base price.
func (g *Generator) Tick(symbol string) Ticker {
	base := g.BasePrice(symbol)
	price := base + base*uniform(-0.005, 0.005)

	return Ticker{
		Symbol:    symbol,
		Price:     round2(price),
		Volume:    round2(uniform(100, 1000)),
		High:      round2(price * 1.01),
		Low:       round2(price * 0.99),
		Timestamp: time.Now(),
	}
}

// Candles returns `limit` bars for the symbol, oldest first with strictly
// ascending timestamps. Each bar's open is an independent ±2% draw from the
// base price.
func (g *Generator) Candles(symbol, timeframe string, limit int) []Candle {
	base := g.BasePrice(symbol)
	unit := timeframeUnit(timeframe)
	now := time.Now()

	candles := make([]Candle, 0, limit)
	for i := 0; i < limit; i++ {
		open := base + base*uniform(-0.02, 0.02)
		candles = append(candles, Candle{
			Timestamp: now.Add(-time.Duration(i) * unit),
			Open:      round2(open),
			High:      round2(open * (1 + uniform(0, 0.01))),
			Low:       round2(open * (1 - uniform(0, 0.01))),
			Close:     round2(open * (1 + uniform(-0.005, 0.005))),
			Volume:    round2(uniform(10, 100)),
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles
}

// Depth returns a simulated order book: ten levels per side, spaced 0.1%
// apart from the base price.
func (g *Generator) Depth(symbol string) OrderBook {
	base := g.BasePrice(symbol)

	book := OrderBook{Symbol: symbol, Timestamp: time.Now()}
	for i := 0; i < 10; i++ {
		offset := 0.001 * float64(i+1)
		book.Bids = append(book.Bids, [2]float64{
			round2(base * (1 - offset)),
			round4(uniform(0.1, 2.0)),
		})
		book.Asks = append(book.Asks, [2]float64{
			round2(base * (1 + offset)),
			round4(uniform(0.1, 2.0)),
		})
	}
	return book
}

// RandomWalk returns one daily candle per day starting at `start`. Unlike
// Candles, each day's reference price drifts from the previous day's by a
// bounded ±3% step, so the series has real trend structure for backtesting.
func (g *Generator) RandomWalk(symbol string, start time.Time, days int) []Candle {
	price := g.BasePrice(symbol)

	candles := make([]Candle, 0, days)
	for i := 0; i < days; i++ {
		candles = append(candles, Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      round2(price * (1 + uniform(-0.01, 0.01))),
			High:      round2(price * (1 + uniform(0, 0.02))),
			Low:       round2(price * (1 - uniform(0, 0.02))),
			Close:     round2(price * (1 + uniform(-0.01, 0.01))),
			Volume:    round2(uniform(100, 1000)),
		})
		price += price * uniform(-0.03, 0.03)
	}
	return candles
}

func timeframeUnit(timeframe string) time.Duration {
	switch timeframe {
	case Timeframe1h:
		return time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
