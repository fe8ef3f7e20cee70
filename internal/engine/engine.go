package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradesim/internal/config"
	"tradesim/internal/market"
	"tradesim/internal/notify"
)

// ErrNotFound marks a referenced strategy or exchange that does not exist.
var ErrNotFound = errors.New("not found")

// tradeSymbols is the fixed symbol set every strategy is evaluated against.
var tradeSymbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}

// Engine owns strategy scheduling and signal realization. The per-strategy
// last-run map lives on the engine (not in a package global) and exists only
// for the process lifetime; a restart clears the throttle.
type Engine struct {
	db        *gorm.DB
	logger    *zap.Logger
	market    *market.Generator
	publisher notify.Publisher
	interval  time.Duration
	throttle  time.Duration

	mu      sync.Mutex
	lastRun map[uuid.UUID]time.Time
}

// NewEngine creates a new trading engine.
func NewEngine(db *gorm.DB, gen *market.Generator, publisher notify.Publisher, cfg config.Trading, logger *zap.Logger) *Engine {
	interval := time.Duration(cfg.TickInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	throttle := time.Duration(cfg.ThrottleSeconds) * time.Second
	if throttle <= 0 {
		throttle = 5 * time.Minute
	}

	return &Engine{
		db:        db,
		logger:    logger.Named("engine"),
		market:    gen,
		publisher: publisher,
		interval:  interval,
		throttle:  throttle,
		lastRun:   make(map[uuid.UUID]time.Time),
	}
}

// Run starts the scheduler loop. It sweeps all active strategies on the
// configured cadence until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("Starting strategy scheduler", zap.Duration("interval", e.interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping strategy scheduler...")
			return
		case <-ticker.C:
			signals := e.RunStrategies(nil)
			e.logger.Info("Scheduler sweep complete", zap.Int("signals", len(signals)))
		}
	}
}

// claimRun records a strategy execution unless one happened inside the
// throttle window. Last-write-wins is fine here; the only requirement is no
// duplicate evaluation within the window.
func (e *Engine) claimRun(id uuid.UUID, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastRun[id]; ok && now.Sub(last) < e.throttle {
		return false
	}
	e.lastRun[id] = now
	return true
}
