package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wappi2mqtt/config"
	"wappi2mqtt/logger"
	"wappi2mqtt/retry"
)

const (
	KEEP_ALIVE             = 60 * time.Second
	PING_TIMEOUT           = 30 * time.Second
	CONNECT_TIMEOUT        = 30 * time.Second
	MAX_RECONNECT_INTERVAL = 10 * time.Second
	DISCONNECT_QUIESCE_MS  = 250

	OPERATION_TIMEOUT = 5 * time.Second

	PUBLISH_RETRY_DELAY     = 200 * time.Millisecond
	PUBLISH_MAX_RETRY_DELAY = 2 * time.Second

	AVAILABILITY_ONLINE  = "online"
	AVAILABILITY_OFFLINE = "offline"
)

var ErrTimeout = errors.New("timed out waiting for MQTT broker")

type MQTTClient interface {
	Connect() error
	Disconnect() error
	IsConnected() bool
	Publish(topic string, payload []byte, qos byte, retain bool, maxRetries int) error
	Subscribe(topic string, handler MessageHandler) error
	Unsubscribe(topic string) error
}

type MessageHandler func(topic string, payload []byte)

type PahoClient struct {
	cfg               *config.MQTTConfig
	availabilityTopic string
	client            mqtt.Client
	logger            logger.Logger
	// timeout bounds every wait on a broker acknowledgement.
	timeout time.Duration

	mu          sync.RWMutex
	subscribers map[string]MessageHandler
}

func NewPahoClient(cfg *config.MQTTConfig, logger logger.Logger) *PahoClient {
	return &PahoClient{
		cfg:               cfg,
		availabilityTopic: Topics{Prefix: cfg.TopicPrefix}.Availability(),
		logger:            logger,
		timeout:           OPERATION_TIMEOUT,
		subscribers:       make(map[string]MessageHandler),
	}
}

// Connect blocks until the broker accepts the session. The broker publishes
// AVAILABILITY_OFFLINE on the availability topic if the bridge goes away.
func (c *PahoClient) Connect() error {
	brokerURL := c.cfg.GetMQTTBrokerURL()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(c.cfg.ClientID)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
	}

	if c.cfg.Password != "" {
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetKeepAlive(KEEP_ALIVE)
	opts.SetDefaultPublishHandler(c.defaultMessageHandler)
	opts.SetPingTimeout(PING_TIMEOUT)
	opts.SetConnectTimeout(CONNECT_TIMEOUT)
	opts.SetAutoReconnect(c.cfg.AutoReconnect)
	opts.SetMaxReconnectInterval(MAX_RECONNECT_INTERVAL)
	opts.SetWill(c.availabilityTopic, AVAILABILITY_OFFLINE, 1, true)
	opts.SetConnectionLostHandler(c.connectionLostHandler)
	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetReconnectingHandler(c.reconnectingHandler)

	c.client = mqtt.NewClient(opts)

	c.logger.Info("Connecting to MQTT broker at %s", brokerURL)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.logger.Info("Successfully connected to MQTT broker")
	return nil
}

func (c *PahoClient) Disconnect() error {
	if c.client != nil && c.client.IsConnected() {
		c.logger.Info("Disconnecting from MQTT broker")
		token := c.client.Publish(c.availabilityTopic, 1, true, AVAILABILITY_OFFLINE)
		if err := c.wait(token); err != nil {
			c.logger.Warn("Failed to publish offline availability: %v", err)
		}
		c.client.Disconnect(DISCONNECT_QUIESCE_MS)
	}
	return nil
}

func (c *PahoClient) IsConnected() bool {
	if c.client == nil {
		return false
	}
	return c.client.IsConnected()
}

// Publish sends payload, retrying up to maxRetries times with a short
// exponential backoff while the broker connection is being restored. A broker
// that does not acknowledge within the operation timeout is not retried.
func (c *PahoClient) Publish(topic string, payload []byte, qos byte, retain bool, maxRetries int) error {
	backoff := retry.NewManager(
		retry.WithMaxAttempts(maxRetries),
		retry.WithDelays(PUBLISH_RETRY_DELAY, PUBLISH_MAX_RETRY_DELAY),
	)

	for {
		err := c.publishOnce(topic, payload, qos, retain)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTimeout) {
			return err
		}

		delay, ok := backoff.Next()
		if !ok {
			return err
		}
		c.logger.Debug("Publish to %s failed (attempt %d/%d), retrying in %v: %v",
			topic, backoff.GetAttempt(), backoff.MaxAttempts(), delay, err)
		time.Sleep(delay)
	}
}

func (c *PahoClient) publishOnce(topic string, payload []byte, qos byte, retain bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	token := c.client.Publish(topic, qos, retain, payload)
	if err := c.wait(token); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// wait returns the token's error, or ErrTimeout if the broker did not answer in time.
func (c *PahoClient) wait(token mqtt.Token) error {
	if !token.WaitTimeout(c.timeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (c *PahoClient) Subscribe(topic string, handler MessageHandler) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	c.mu.Lock()
	c.subscribers[topic] = handler
	c.mu.Unlock()

	token := c.client.Subscribe(topic, c.cfg.QoS, c.route)
	if err := c.wait(token); err != nil {
		c.mu.Lock()
		delete(c.subscribers, topic)
		c.mu.Unlock()
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	c.logger.Info("Successfully subscribed to topic: %s", topic)
	return nil
}

func (c *PahoClient) Unsubscribe(topic string) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	token := c.client.Unsubscribe(topic)
	if err := c.wait(token); err != nil {
		return fmt.Errorf("failed to unsubscribe from topic %s: %w", topic, err)
	}

	c.mu.Lock()
	delete(c.subscribers, topic)
	c.mu.Unlock()
	c.logger.Info("Successfully unsubscribed from topic: %s", topic)
	return nil
}

func (c *PahoClient) route(_ mqtt.Client, msg mqtt.Message) {
	c.mu.RLock()
	handler, exists := c.subscribers[msg.Topic()]
	c.mu.RUnlock()

	if exists {
		handler(msg.Topic(), msg.Payload())
	}
}

func (c *PahoClient) defaultMessageHandler(client mqtt.Client, msg mqtt.Message) {
	c.logger.Debug("Received message on topic %s: %s", msg.Topic(), string(msg.Payload()))
}

func (c *PahoClient) connectionLostHandler(client mqtt.Client, err error) {
	c.logger.Warn("MQTT connection lost: %v", err)
}

// onConnectHandler runs on the first connect and every automatic reconnect.
func (c *PahoClient) onConnectHandler(client mqtt.Client) {
	c.logger.Info("MQTT connection established")

	token := client.Publish(c.availabilityTopic, 1, true, AVAILABILITY_ONLINE)
	if err := c.wait(token); err != nil {
		c.logger.Error("Failed to publish availability: %v", err)
	}

	c.mu.RLock()
	topics := make([]string, 0, len(c.subscribers))
	for topic := range c.subscribers {
		topics = append(topics, topic)
	}
	c.mu.RUnlock()

	for _, topic := range topics {
		c.logger.Info("Resubscribing to topic: %s", topic)
		token := client.Subscribe(topic, c.cfg.QoS, c.route)
		if err := c.wait(token); err != nil {
			c.logger.Error("Failed to resubscribe to topic %s: %v", topic, err)
		}
	}
}

func (c *PahoClient) reconnectingHandler(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.logger.Info("Attempting to reconnect to MQTT broker...")
}
