package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"garage_door/internal/logger"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttQoS            = 1 // at-least-once; subscribers dedupe on timestampSeconds
)

// MQTTPublisher publishes event payloads as JSON to an MQTT broker. Topic
// names from TopicForDevice are valid MQTT topics as-is.
type MQTTPublisher struct {
	client mqtt.Client
	log    *logger.Logger
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(brokerURL, clientID string, log *logger.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %q: timeout", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %q: %w", brokerURL, err)
	}
	return &MQTTPublisher{client: client, log: log}, nil
}

var _ Notifier = (*MQTTPublisher)(nil)

func (p *MQTTPublisher) Publish(_ context.Context, topic string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}
	token := p.client.Publish(topic, mqttQoS, false, body)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("publish to %q: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %q: %w", topic, err)
	}
	if p.log != nil {
		p.log.Debugw("mqtt_published", "topic", topic)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages to finish.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(uint(mqttPublishTimeout.Milliseconds()))
}
