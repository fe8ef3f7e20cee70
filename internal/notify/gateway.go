package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradesim/internal/market"
)

// broadcastSymbols are streamed to every room session unless the client
// narrows to one symbol with a subscribe message.
var broadcastSymbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}

// Gateway upgrades HTTP connections to WebSocket sessions. Each session
// joins its room channel on the hub (plus the per-user channel when a
// user_id is supplied) and receives a paced simulated market data feed.
type Gateway struct {
	hub      *Hub
	market   *market.Generator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a WebSocket gateway backed by the hub.
func NewGateway(hub *Hub, gen *market.Generator, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		market: gen,
		logger: logger.Named("gateway"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws/trading/{room}.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	if room == "" {
		room = "market"
	}

	channels := []string{RoomChannel(room)}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		channels = append(channels, "trading_user_"+userID)
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		gateway: g,
		conn:    conn,
		sub:     g.hub.Subscribe(64, channels...),
		feed:    make(chan []byte, 16),
		cancel:  cancel,
	}
	g.logger.Info("Client connected", zap.String("room", room), zap.Strings("channels", channels))

	go s.readLoop()
	go s.feedLoop(ctx)
	s.writeLoop(ctx)

	s.sub.Close()
	conn.Close()
	g.logger.Info("Client disconnected", zap.String("room", room))
}

type session struct {
	gateway *Gateway
	conn    *websocket.Conn
	sub     *Subscription
	feed    chan []byte
	cancel  context.CancelFunc

	mu     sync.Mutex
	symbol string // empty means all broadcast symbols
}

type clientMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// readLoop consumes client messages until the connection drops.
func (s *session) readLoop() {
	defer s.cancel()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "subscribe" {
			s.mu.Lock()
			s.symbol = msg.Symbol
			s.mu.Unlock()
		}
	}
}

// feedLoop pushes one round of ticker updates per second into the session.
func (s *session) feedLoop(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		s.mu.Lock()
		filter := s.symbol
		s.mu.Unlock()

		for _, symbol := range broadcastSymbols {
			if filter != "" && filter != symbol {
				continue
			}
			payload, err := json.Marshal(map[string]any{
				"type": "market_data",
				"data": s.gateway.market.Tick(symbol),
			})
			if err != nil {
				continue
			}
			select {
			case s.feed <- payload:
			case <-ctx.Done():
				return
			}
		}
	}
}

// writeLoop is the only goroutine writing to the connection.
func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case payload, ok := <-s.sub.C:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.cancel()
				return
			}
		case payload := <-s.feed:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
