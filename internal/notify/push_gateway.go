package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"garage_door/internal/logger"
)

const pushRequestTimeout = 10 * time.Second

// PushGatewayPublisher delivers event payloads to an FCM-style HTTP push
// gateway: one POST per message, topic in the body, server key in the
// Authorization header.
type PushGatewayPublisher struct {
	client *resty.Client
	log    *logger.Logger
}

type pushMessage struct {
	Topic       string            `json:"topic"`
	Data        map[string]string `json:"data"`
	CollapseKey string            `json:"collapseKey"`
	Priority    string            `json:"priority"`
}

// NewPushGatewayPublisher builds a publisher for the given gateway endpoint.
func NewPushGatewayPublisher(endpoint, serverKey string, log *logger.Logger) *PushGatewayPublisher {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(pushRequestTimeout).
		SetHeader("Authorization", "key="+serverKey).
		SetHeader("Content-Type", "application/json")
	return &PushGatewayPublisher{client: client, log: log}
}

var _ Notifier = (*PushGatewayPublisher)(nil)

func (p *PushGatewayPublisher) Publish(ctx context.Context, topic string, payload map[string]string) error {
	msg := pushMessage{
		Topic:       topic,
		Data:        payload,
		CollapseKey: "sensor_event_update",
		Priority:    "high",
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("")
	if err != nil {
		return fmt.Errorf("push to %q: %w", topic, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("push to %q: gateway returned %s", topic, resp.Status())
	}
	if p.log != nil {
		p.log.Debugw("push_sent", "topic", topic, "status", resp.StatusCode())
	}
	return nil
}
