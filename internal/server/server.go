package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradesim/internal/backtest"
	"tradesim/internal/engine"
	"tradesim/internal/market"
	"tradesim/internal/notify"
)

// Server exposes the venue's request surface over HTTP plus the WebSocket
// gateway. Authentication is out of scope: callers identify themselves with
// explicit user fields.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	engine     *engine.Engine
	backtester *backtest.Runner
	db         *gorm.DB
	market     *market.Generator
	logger     *zap.Logger
	validate   *validator.Validate
	startTime  time.Time
}

// NewServer wires the router and handlers.
func NewServer(port int, eng *engine.Engine, runner *backtest.Runner, db *gorm.DB, gen *market.Generator, gateway *notify.Gateway, logger *zap.Logger) *Server {
	s := &Server{
		engine:     eng,
		backtester: runner,
		db:         db,
		market:     gen,
		logger:     logger.Named("api-server"),
		validate:   validator.New(),
		startTime:  time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws/trading/{room}", gateway.ServeWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/strategies/{id}/run", s.runStrategyHandler).Methods(http.MethodPost)
	api.HandleFunc("/backtest", s.backtestHandler).Methods(http.MethodPost)
	api.HandleFunc("/trades/execute", s.executeTradeHandler).Methods(http.MethodPost)
	api.HandleFunc("/portfolio", s.portfolioHandler).Methods(http.MethodGet)
	api.HandleFunc("/market/data", s.marketDataHandler).Methods(http.MethodGet)

	s.router = r
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":       "tradesim",
		"start_time": s.startTime.Format(time.RFC3339),
		"uptime":     time.Since(s.startTime).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
