package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"tradesim/internal/market"
	"tradesim/internal/models"
)

// Candle history pulled per variant. Each window is generous enough for the
// default parameters to produce defined rolling values on the final bars.
const (
	momentumBars  = 24
	reversionBars = 48
	breakoutBars  = 48
	trendBars     = 72
)

// Evaluate runs one strategy against one symbol and returns at most one
// signal. A nil signal with a nil error means no threshold was crossed (or
// the provider served too little history for the rolling windows). CUSTOM
// and unknown strategy types deliberately fall back to momentum behavior.
func Evaluate(strat *models.Strategy, exchangeID uuid.UUID, symbol string, provider CandleProvider) (*Signal, error) {
	e := evaluation{strat: strat, exchangeID: exchangeID, symbol: symbol, provider: provider}

	switch strat.Type {
	case models.StrategyMeanReversion:
		return e.meanReversion()
	case models.StrategyBreakout:
		return e.breakout()
	case models.StrategyTrendFollowing:
		return e.trendFollowing()
	case models.StrategyMomentum:
		return e.momentum()
	default:
		return e.momentum()
	}
}

type evaluation struct {
	strat      *models.Strategy
	exchangeID uuid.UUID
	symbol     string
	provider   CandleProvider
}

func (e evaluation) history(limit int) ([]market.Candle, error) {
	candles, err := e.provider.Candles(e.symbol, market.Timeframe1h, limit)
	if err != nil {
		return nil, fmt.Errorf("could not get candles for %s: %w", e.symbol, err)
	}
	return candles, nil
}

func (e evaluation) signal(t SignalType, price, quantity float64, reason string) *Signal {
	return &Signal{
		StrategyID: e.strat.ID,
		ExchangeID: e.exchangeID,
		Symbol:     e.symbol,
		Type:       t,
		Price:      price,
		Quantity:   quantity,
		Timestamp:  time.Now(),
		Reason:     reason,
	}
}

// param reads a numeric strategy parameter, falling back to the per-type
// default when the key is absent or not coercible to a number.
func (e evaluation) param(key string, def float64) float64 {
	v, ok := e.strat.Parameters[key]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// momentum signals when the summed return over the lookback window crosses
// the threshold. Position size scales with momentum strength.
func (e evaluation) momentum() (*Signal, error) {
	candles, err := e.history(momentumBars)
	if err != nil {
		return nil, err
	}

	lookback := int(e.param("lookback_period", 12))
	threshold := e.param("threshold", 0.02)

	cls := closes(candles)
	rets := returns(cls)
	momentum, ok := rollingSum(rets, lookback, len(rets)-1)
	if !ok {
		return nil, nil
	}

	price := cls[len(cls)-1]
	size := clamp(math.Abs(momentum)*0.1, 0.01, 1.0)

	switch {
	case momentum > threshold:
		return e.signal(SignalBuy, price, size,
			fmt.Sprintf("Momentum (%.4f) above threshold (%v)", momentum, threshold)), nil
	case momentum < -threshold:
		return e.signal(SignalSell, price, size,
			fmt.Sprintf("Momentum (%.4f) below negative threshold (%v)", momentum, -threshold)), nil
	}
	return nil, nil
}

// meanReversion signals when the last close leaves the Bollinger-style band
// around the rolling mean. Position size scales with the distance from the
// mean in standard deviations.
func (e evaluation) meanReversion() (*Signal, error) {
	candles, err := e.history(reversionBars)
	if err != nil {
		return nil, err
	}

	window := int(e.param("window", 20))
	stdDev := e.param("std_dev", 2.0)

	cls := closes(candles)
	last := len(cls) - 1
	ma, okMean := rollingMean(cls, window, last)
	std, okStd := rollingStd(cls, window, last)
	if !okMean || !okStd || std == 0 {
		return nil, nil
	}

	price := cls[last]
	upper := ma + std*stdDev
	lower := ma - std*stdDev
	size := clamp(math.Abs(price-ma)/std*0.2, 0.01, 1.0)

	switch {
	case price > upper:
		return e.signal(SignalSell, price, size,
			fmt.Sprintf("Price (%.2f) above upper band (%.2f)", price, upper)), nil
	case price < lower:
		return e.signal(SignalBuy, price, size,
			fmt.Sprintf("Price (%.2f) below lower band (%.2f)", price, lower)), nil
	}
	return nil, nil
}

// breakout signals when the last close clears the rolling extreme evaluated
// at the previous bar. Using the previous bar keeps the live bar's own
// high/low out of its breakout threshold.
func (e evaluation) breakout() (*Signal, error) {
	candles, err := e.history(breakoutBars)
	if err != nil {
		return nil, err
	}

	lookback := int(e.param("lookback", 20))

	cls := closes(candles)
	prev := len(cls) - 2
	prevHighest, okHigh := rollingMax(highs(candles), lookback, prev)
	prevLowest, okLow := rollingMin(lows(candles), lookback, prev)
	if !okHigh || !okLow {
		return nil, nil
	}

	price := cls[len(cls)-1]
	const size = 0.1

	switch {
	case price > prevHighest:
		return e.signal(SignalBuy, price, size,
			fmt.Sprintf("Breakout above previous high (%.2f)", prevHighest)), nil
	case price < prevLowest:
		return e.signal(SignalSell, price, size,
			fmt.Sprintf("Breakdown below previous low (%.2f)", prevLowest)), nil
	}
	return nil, nil
}

// trendFollowing signals on a fast/slow moving-average crossover between the
// previous bar and the current one. Position size scales with the spread
// between the averages.
func (e evaluation) trendFollowing() (*Signal, error) {
	candles, err := e.history(trendBars)
	if err != nil {
		return nil, err
	}

	fast := int(e.param("fast_period", 9))
	slow := int(e.param("slow_period", 21))

	cls := closes(candles)
	cur := len(cls) - 1
	curFast, ok1 := rollingMean(cls, fast, cur)
	curSlow, ok2 := rollingMean(cls, slow, cur)
	prevFast, ok3 := rollingMean(cls, fast, cur-1)
	prevSlow, ok4 := rollingMean(cls, slow, cur-1)
	if !ok1 || !ok2 || !ok3 || !ok4 || curSlow == 0 {
		return nil, nil
	}

	price := cls[cur]
	size := clamp(math.Abs(curFast-curSlow)/curSlow*5, 0.01, 1.0)

	switch {
	case prevFast <= prevSlow && curFast > curSlow:
		return e.signal(SignalBuy, price, size,
			fmt.Sprintf("Bullish crossover (Fast MA: %.2f, Slow MA: %.2f)", curFast, curSlow)), nil
	case prevFast >= prevSlow && curFast < curSlow:
		return e.signal(SignalSell, price, size,
			fmt.Sprintf("Bearish crossover (Fast MA: %.2f, Slow MA: %.2f)", curFast, curSlow)), nil
	}
	return nil, nil
}
