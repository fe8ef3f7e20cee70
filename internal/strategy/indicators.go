package strategy

import (
	"math"

	"tradesim/internal/market"
)

// Rolling helpers compute a window statistic ending at index `at` (inclusive).
// They report ok=false while the window has not filled yet, which is how the
// evaluators decline to signal on short history instead of indexing out of
// range.

func rollingSum(vals []float64, window, at int) (float64, bool) {
	if window <= 0 || at >= len(vals) || at-window+1 < 0 {
		return 0, false
	}
	sum := 0.0
	for i := at - window + 1; i <= at; i++ {
		sum += vals[i]
	}
	return sum, true
}

func rollingMean(vals []float64, window, at int) (float64, bool) {
	sum, ok := rollingSum(vals, window, at)
	if !ok {
		return 0, false
	}
	return sum / float64(window), true
}

// rollingStd is the sample (n-1) standard deviation over the window.
func rollingStd(vals []float64, window, at int) (float64, bool) {
	if window < 2 {
		return 0, false
	}
	mean, ok := rollingMean(vals, window, at)
	if !ok {
		return 0, false
	}
	ss := 0.0
	for i := at - window + 1; i <= at; i++ {
		d := vals[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(window-1)), true
}

func rollingMax(vals []float64, window, at int) (float64, bool) {
	if window <= 0 || at >= len(vals) || at-window+1 < 0 {
		return 0, false
	}
	max := vals[at-window+1]
	for i := at - window + 2; i <= at; i++ {
		if vals[i] > max {
			max = vals[i]
		}
	}
	return max, true
}

func rollingMin(vals []float64, window, at int) (float64, bool) {
	if window <= 0 || at >= len(vals) || at-window+1 < 0 {
		return 0, false
	}
	min := vals[at-window+1]
	for i := at - window + 2; i <= at; i++ {
		if vals[i] < min {
			min = vals[i]
		}
	}
	return min, true
}

// returns is the bar-over-bar percentage change series; element i is the
// return from close i to close i+1, so the result is one shorter than the
// input.
func returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	return rets
}

func closes(candles []market.Candle) []float64 {
	vals := make([]float64, len(candles))
	for i, c := range candles {
		vals[i] = c.Close
	}
	return vals
}

func highs(candles []market.Candle) []float64 {
	vals := make([]float64, len(candles))
	for i, c := range candles {
		vals[i] = c.High
	}
	return vals
}

func lows(candles []market.Candle) []float64 {
	vals := make([]float64, len(candles))
	for i, c := range candles {
		vals[i] = c.Low
	}
	return vals
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
