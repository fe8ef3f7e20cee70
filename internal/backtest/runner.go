package backtest

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradesim/internal/market"
	"tradesim/internal/models"
	"tradesim/internal/strategy"
)

// startingCash is the simulated portfolio's initial cash balance.
const startingCash = 10000.0

// TradeLogEntry records one backtest step where the strategy fired,
// including signals skipped for insufficient cash or position.
// PortfolioValue is the cash balance after the step.
type TradeLogEntry struct {
	Date           time.Time           `json:"date"`
	Price          float64             `json:"price"`
	Type           strategy.SignalType `json:"type"`
	Quantity       float64             `json:"quantity"`
	PortfolioValue float64             `json:"portfolio_value"`
	Position       float64             `json:"position"`
}

// Result is a backtest performance report.
type Result struct {
	Trades        []TradeLogEntry `json:"trades"`
	InitialValue  float64         `json:"initial_value"`
	FinalValue    float64         `json:"final_value"`
	ProfitLoss    float64         `json:"profit_loss"`
	ProfitLossPct float64         `json:"profit_loss_pct"`
	MaxDrawdown   float64         `json:"max_drawdown"`
	TradeCount    int             `json:"trade_count"`
	Error         string          `json:"error,omitempty"`
}

// Runner replays strategies over simulated historical windows.
type Runner struct {
	market *market.Generator
	logger *zap.Logger
}

// NewRunner creates a backtest runner.
func NewRunner(gen *market.Generator, logger *zap.Logger) *Runner {
	return &Runner{market: gen, logger: logger.Named("backtest")}
}

// Run replays the strategy bar-by-bar over [start, end) against a random-walk
// daily price series. A run never fails outward: anything that prevents the
// replay degrades to a zero result carrying the error message.
func (r *Runner) Run(strat *models.Strategy, exchangeID uuid.UUID, symbol string, start, end time.Time) Result {
	days := int(end.Sub(start).Hours() / 24)
	if days < 2 {
		return errorResult("backtest window must span at least two days")
	}

	candles := r.market.RandomWalk(symbol, start, days)

	cash := startingCash
	position := 0.0
	trades := []TradeLogEntry{}

	// The final bar is excluded: its close values the open position instead
	// of realizing one more trade.
	for i := 0; i < len(candles)-1; i++ {
		visible := strategy.History(candles[: i+1 : i+1])
		sig, err := strategy.Evaluate(strat, exchangeID, symbol, visible)
		if err != nil {
			r.logger.Warn("Evaluation failed during backtest",
				zap.String("strategy", strat.ID.String()),
				zap.Int("bar", i),
				zap.Error(err))
			continue
		}
		if sig == nil {
			continue
		}

		price := candles[i].Close
		switch sig.Type {
		case strategy.SignalBuy:
			if cost := price * sig.Quantity; cost <= cash {
				cash -= cost
				position += sig.Quantity
			}
		case strategy.SignalSell:
			if position >= sig.Quantity {
				cash += price * sig.Quantity
				position -= sig.Quantity
			}
		}

		trades = append(trades, TradeLogEntry{
			Date:           candles[i].Timestamp,
			Price:          price,
			Type:           sig.Type,
			Quantity:       sig.Quantity,
			PortfolioValue: cash,
			Position:       position,
		})
	}

	finalValue := cash + position*candles[len(candles)-1].Close
	profitLoss := finalValue - startingCash

	return Result{
		Trades:        trades,
		InitialValue:  startingCash,
		FinalValue:    finalValue,
		ProfitLoss:    profitLoss,
		ProfitLossPct: profitLoss / startingCash * 100,
		MaxDrawdown:   maxDrawdown(trades),
		TradeCount:    len(trades),
	}
}

// maxDrawdown is the largest percentage decline from the running portfolio
// peak, measured across the logged trade steps only.
func maxDrawdown(trades []TradeLogEntry) float64 {
	peak := startingCash
	max := 0.0
	for _, t := range trades {
		value := t.PortfolioValue + t.Position*t.Price
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak * 100; dd > max {
			max = dd
		}
	}
	return max
}

func errorResult(msg string) Result {
	return Result{
		Trades:       []TradeLogEntry{},
		InitialValue: startingCash,
		FinalValue:   startingCash,
		Error:        msg,
	}
}
