package mqtt

import (
	"github.com/goccy/go-json"

	"wappi2mqtt/config"
	"wappi2mqtt/logger"
	"wappi2mqtt/notify"
	"wappi2mqtt/session"
)

const (
	PUBLISH_MAX_RETRIES = 3

	STATE_CONNECTED    = "connected"
	STATE_DISCONNECTED = "disconnected"
	STATE_GIVEN_UP     = "given_up"
)

// Bridge republishes notification traffic on the broker.
type Bridge struct {
	client MQTTClient
	topics Topics
	qos    byte
	retain bool
	logger logger.Logger
}

func NewBridge(client MQTTClient, cfg *config.MQTTConfig, logger logger.Logger) *Bridge {
	return &Bridge{
		client: client,
		topics: Topics{Prefix: cfg.TopicPrefix},
		qos:    cfg.QoS,
		retain: cfg.Retain,
		logger: logger,
	}
}

func (b *Bridge) Topics() Topics {
	return b.topics
}

// Handlers returns watcher callbacks that publish every event.
func (b *Bridge) Handlers() session.Handlers {
	return session.Handlers{
		OnNotification: b.OnNotification,
		OnOrderClaimed: b.OnOrderClaimed,
		OnOrderUpdated: b.OnOrderUpdated,
		OnConnected: func() {
			b.PublishState(STATE_CONNECTED)
		},
		OnDisconnected: func() {
			b.PublishState(STATE_DISCONNECTED)
		},
		OnGiveUp: func(attempts int) {
			b.logger.Warn("Notification client gave up after %d attempts", attempts)
			b.PublishState(STATE_GIVEN_UP)
		},
	}
}

// PublishState publishes the retained connection state.
func (b *Bridge) PublishState(state string) {
	b.logger.Debug("Notification state changed: %s", state)
	b.publish(b.topics.State(), []byte(state), true)
}

func (b *Bridge) OnNotification(n notify.Notification) {
	b.logger.Debug("Received notification: %s", n.Type)

	payload := []byte(n.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	b.publish(b.topics.Notification(string(n.Type)), payload, b.retain)
}

func (b *Bridge) OnOrderClaimed(p notify.OrderClaimedPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		b.logger.Error("Failed to marshal claimed order %s: %v", p.OrderID, err)
		return
	}
	b.publish(b.topics.OrderClaimed(p.OrderID), data, b.retain)
}

// OnOrderUpdated publishes the bare status, retained so late subscribers see
// the current one.
func (b *Bridge) OnOrderUpdated(p notify.OrderUpdatedPayload) {
	if !p.Status.Valid() {
		b.logger.Warn("Order %s updated with unknown status %q", p.ID, p.Status)
	}
	b.publish(b.topics.OrderStatus(p.ID), []byte(p.Status), true)
}

func (b *Bridge) publish(topic string, payload []byte, retain bool) {
	if !b.client.IsConnected() {
		b.logger.Debug("MQTT not connected, dropping message for %s", topic)
		return
	}
	if err := b.client.Publish(topic, payload, b.qos, retain, PUBLISH_MAX_RETRIES); err != nil {
		b.logger.Error("Failed to publish to %s after retries: %v", topic, err)
	}
}
