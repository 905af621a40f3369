// Package publisher pushes run summaries to an MQTT broker so multi-hour
// download runs can be watched from elsewhere.
package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridcap/icafetch/internal/config"
	"github.com/gridcap/icafetch/pkg/models"
)

// Publisher publishes run summaries over MQTT
type Publisher struct {
	client mqtt.Client
	topic  string
}

// New connects to the configured broker
func New(cfg config.MQTTConfig, topic string) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("icafetch")
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{client: client, topic: topic}, nil
}

// PublishSummary sends a run summary as JSON to the configured topic
func (p *Publisher) PublishSummary(summary *models.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing summary: %w", token.Error())
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
