package strategy

import "tradesim/internal/market"

// CandleProvider supplies the candle history an evaluation reads. Live
// evaluation uses the synthetic generator; backtests inject a fixed slice of
// historical bars. The evaluator itself never knows which it got.
type CandleProvider interface {
	Candles(symbol, timeframe string, limit int) ([]market.Candle, error)
}

// LiveProvider serves freshly generated candles.
type LiveProvider struct {
	Generator *market.Generator
}

// Candles implements CandleProvider.
func (p LiveProvider) Candles(symbol, timeframe string, limit int) ([]market.Candle, error) {
	return p.Generator.Candles(symbol, timeframe, limit), nil
}

// History is a fixed candle series. It serves everything it holds regardless
// of the requested limit: a backtest step exposes exactly the bars that have
// "happened" so far, and the rolling windows read from the end anyway.
type History []market.Candle

// Candles implements CandleProvider.
func (h History) Candles(symbol, timeframe string, limit int) ([]market.Candle, error) {
	return h, nil
}
