package notify

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub is an in-process channel-to-subscriber fan-out. Sends are non-blocking:
// a subscriber that cannot keep up loses events rather than stalling the
// publisher.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives the events published to its channels on C. Close it
// when done or the hub will keep fanning out to it.
type Subscription struct {
	C chan []byte

	hub      *Hub
	channels []string
	once     sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.Named("hub"),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber on the given channels.
func (h *Hub) Subscribe(buffer int, channels ...string) *Subscription {
	sub := &Subscription{
		C:        make(chan []byte, buffer),
		hub:      h,
		channels: channels,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if h.subs[ch] == nil {
			h.subs[ch] = make(map[*Subscription]struct{})
		}
		h.subs[ch][sub] = struct{}{}
	}
	return sub
}

// Close removes the subscription from the hub and closes its event channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		for _, ch := range s.channels {
			delete(h.subs[ch], s)
			if len(h.subs[ch]) == 0 {
				delete(h.subs, ch)
			}
		}
		h.mu.Unlock()
		close(s.C)
	})
}

// Publish implements Publisher. The event is marshaled once and handed to
// every subscriber of the channel.
func (h *Hub) Publish(channel string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", zap.String("channel", channel), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[channel] {
		select {
		case sub.C <- payload:
		default:
			h.logger.Warn("Dropping event for slow subscriber", zap.String("channel", channel))
		}
	}
}
