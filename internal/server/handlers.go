package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradesim/internal/engine"
	"tradesim/internal/market"
	"tradesim/internal/models"
	"tradesim/internal/portfolio"
)

type backtestRequest struct {
	StrategyID string `json:"strategy_id" validate:"required,uuid4"`
	ExchangeID string `json:"exchange_id" validate:"omitempty,uuid4"`
	Symbol     string `json:"symbol" validate:"required"`
	Days       int    `json:"days" validate:"required,min=2,max=3650"`
}

type executeTradeRequest struct {
	UserID     uint    `json:"user_id" validate:"required"`
	Symbol     string  `json:"symbol" validate:"required"`
	TradeType  string  `json:"trade_type" validate:"required,oneof=BUY SELL"`
	Quantity   float64 `json:"quantity" validate:"required,gt=0"`
	ExchangeID string  `json:"exchange_id" validate:"required,uuid4"`
	StrategyID string  `json:"strategy_id" validate:"omitempty,uuid4"`
}

// decodeAndValidate unmarshals the request body into v and runs the
// validator; a false return means the error response was already written.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// POST /api/strategies/{id}/run
func (s *Server) runStrategyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid strategy id")
		return
	}

	signals, err := s.engine.RunStrategy(id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("Strategy run failed", zap.String("strategy", id.String()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"signals": signals})
}

// POST /api/backtest
func (s *Server) backtestHandler(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	strategyID := uuid.MustParse(req.StrategyID)
	var strat models.Strategy
	err := s.db.First(&strat, "id = ?", strategyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.writeError(w, http.StatusNotFound, "strategy "+req.StrategyID+" not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	exchangeID := uuid.Nil
	if req.ExchangeID != "" {
		exchangeID = uuid.MustParse(req.ExchangeID)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -req.Days)
	result := s.backtester.Run(&strat, exchangeID, req.Symbol, start, end)
	s.writeJSON(w, http.StatusOK, result)
}

// POST /api/trades/execute
func (s *Server) executeTradeHandler(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	var strategyID *uuid.UUID
	if req.StrategyID != "" {
		id := uuid.MustParse(req.StrategyID)
		strategyID = &id
	}

	trade, err := s.engine.ExecuteTrade(req.UserID, req.Symbol, req.TradeType, req.Quantity, uuid.MustParse(req.ExchangeID), strategyID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, trade)
}

// GET /api/portfolio?user_id=
func (s *Server) portfolioHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := cast.ToUintE(r.URL.Query().Get("user_id"))
	if err != nil || userID == 0 {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	summary, err := portfolio.Compute(s.db, s.market, userID)
	if err != nil {
		s.logger.Error("Portfolio computation failed", zap.Uint("user_id", userID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// GET /api/market/data?symbol=&data_type=&timeframe=&limit=
func (s *Server) marketDataHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		symbol = "BTC/USDT"
	}

	dataType := q.Get("data_type")
	if dataType == "" {
		dataType = "TICKER"
	}

	switch dataType {
	case "TICKER":
		s.writeJSON(w, http.StatusOK, s.market.Tick(symbol))
	case "ORDERBOOK":
		s.writeJSON(w, http.StatusOK, s.market.Depth(symbol))
	case "CANDLE":
		timeframe := q.Get("timeframe")
		if timeframe == "" {
			timeframe = market.Timeframe1h
		}
		limit := cast.ToInt(q.Get("limit"))
		if limit <= 0 {
			limit = 24
		}
		s.writeJSON(w, http.StatusOK, s.market.Candles(symbol, timeframe, limit))
	default:
		s.writeError(w, http.StatusBadRequest, "invalid data type")
	}
}
