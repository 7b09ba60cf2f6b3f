// Package events publishes auth lifecycle events to the platform's MQTT
// broker. Other services (leaderboard, notifications) subscribe to the
// tradegate/auth/# topics; the auth core itself only ever publishes.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/quaymark/tradegate/internal/infrastructure/config"
)

const (
	topicPrefix    = "tradegate/auth/"
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Publisher delivers auth events to the broker. All methods are safe for
// concurrent use; paho serialises the underlying network writes.
type Publisher struct {
	client pahomqtt.Client
	qos    byte
	logger *slog.Logger
}

// Connect establishes the broker connection and returns a ready publisher.
// Auto-reconnect is enabled, so a broker outage after startup only drops
// events published during the gap.
func Connect(cfg config.EventsConfig, logger *slog.Logger) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to broker: timeout after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	return &Publisher{
		client: client,
		qos:    byte(cfg.QoS),
		logger: logger,
	}, nil
}

// Publish sends one auth event. Failures are logged and dropped; event
// delivery must never fail the originating request.
func (p *Publisher) Publish(event string, payload map[string]any) {
	body := map[string]any{
		"event": event,
		"time":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		p.logger.Warn("auth event not encoded", "event", event, "error", err)
		return
	}

	token := p.client.Publish(topicPrefix+event, p.qos, false, data)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("auth event publish timed out", "event", event)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("auth event not published", "event", event, "error", err)
		}
	}()
}

// Close disconnects from the broker, allowing a short drain for in-flight
// publishes.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
