package notify

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradesim/internal/config"
)

// WebhookPublisher POSTs events to an external URL so operators can mirror
// venue events into their own systems. Delivery is fire-and-forget and rate
// limited; events over the limit are dropped with a warning.
type WebhookPublisher struct {
	client  *resty.Client
	limiter *rate.Limiter
	url     string
	logger  *zap.Logger
}

// NewWebhookPublisher creates a webhook publisher from config.
func NewWebhookPublisher(cfg *config.Webhook, logger *zap.Logger) *WebhookPublisher {
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &WebhookPublisher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		url:     cfg.URL,
		logger:  logger.Named("webhook"),
	}
}

type webhookEnvelope struct {
	Channel string `json:"channel"`
	Event   any    `json:"event"`
}

// Publish implements Publisher.
func (p *WebhookPublisher) Publish(channel string, event any) {
	if !p.limiter.Allow() {
		p.logger.Warn("Webhook rate limit exceeded, dropping event", zap.String("channel", channel))
		return
	}

	go func() {
		resp, err := p.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(webhookEnvelope{Channel: channel, Event: event}).
			Post(p.url)
		if err != nil {
			p.logger.Error("Webhook delivery failed", zap.String("channel", channel), zap.Error(err))
			return
		}
		if resp.IsError() {
			p.logger.Warn("Webhook endpoint returned error",
				zap.String("channel", channel),
				zap.Int("status", resp.StatusCode()))
		}
	}()
}
