package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_BASE_URL               = "http://localhost:8081"
	DEFAULT_NOTIFICATIONS_PATH     = "/ws/notifications"
	DEFAULT_DIAL_TIMEOUT           = 10
	DEFAULT_MAX_RECONNECT_ATTEMPTS = 5
	DEFAULT_INITIAL_RETRY_DELAY_MS = 1000
	DEFAULT_MAX_RETRY_DELAY_MS     = 30000
	DEFAULT_METRICS_PATH           = "/metrics"
)

func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", closeErr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideWithEnv(&config)

	return &config, nil
}

func overrideWithEnv(config *Config) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}

	if baseURL := os.Getenv("NOTIFY_BASE_URL"); baseURL != "" {
		config.Notifications.BaseURL = baseURL
	}
	if path := os.Getenv("NOTIFY_PATH"); path != "" {
		config.Notifications.Path = path
	}
	if timeout := os.Getenv("NOTIFY_DIAL_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Notifications.DialTimeout = t
		}
	}
	if maxReconnect := os.Getenv("NOTIFY_MAX_RECONNECT_ATTEMPTS"); maxReconnect != "" {
		if mr, err := strconv.Atoi(maxReconnect); err == nil {
			config.Notifications.MaxReconnectAttempts = mr
		}
	}
	if initialDelay := os.Getenv("NOTIFY_INITIAL_RETRY_DELAY_MS"); initialDelay != "" {
		if d, err := strconv.Atoi(initialDelay); err == nil {
			config.Notifications.InitialRetryDelay = d
		}
	}
	if maxDelay := os.Getenv("NOTIFY_MAX_RETRY_DELAY_MS"); maxDelay != "" {
		if d, err := strconv.Atoi(maxDelay); err == nil {
			config.Notifications.MaxRetryDelay = d
		}
	}

	if token := os.Getenv("NOTIFY_TOKEN"); token != "" {
		config.Credentials.Token = token
	}
	if dir := os.Getenv("NOTIFY_CREDENTIALS_DIR"); dir != "" {
		config.Credentials.StoreDir = dir
	}

	if host := os.Getenv("MQTT_HOST"); host != "" {
		config.MQTT.Host = host
	}
	if port := os.Getenv("MQTT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.MQTT.Port = p
		}
	}
	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		config.MQTT.Username = username
	}
	if password := os.Getenv("MQTT_PASSWORD"); password != "" {
		config.MQTT.Password = password
	}
	if useTLS := os.Getenv("MQTT_USE_TLS"); useTLS != "" {
		if u, err := strconv.ParseBool(useTLS); err == nil {
			config.MQTT.UseTLS = u
		}
	}
	if clientID := os.Getenv("MQTT_CLIENT_ID"); clientID != "" {
		config.MQTT.ClientID = clientID
	}
	if topicPrefix := os.Getenv("MQTT_TOPIC_PREFIX"); topicPrefix != "" {
		config.MQTT.TopicPrefix = topicPrefix
	}
	if qos := os.Getenv("MQTT_QOS"); qos != "" {
		if q, err := strconv.ParseUint(qos, 10, 8); err == nil {
			config.MQTT.QoS = byte(q)
		}
	}
	if retain := os.Getenv("MQTT_RETAIN"); retain != "" {
		if r, err := strconv.ParseBool(retain); err == nil {
			config.MQTT.Retain = r
		}
	}
	if autoReconnect := os.Getenv("MQTT_AUTO_RECONNECT"); autoReconnect != "" {
		if ar, err := strconv.ParseBool(autoReconnect); err == nil {
			config.MQTT.AutoReconnect = ar
		}
	}
	if commands := os.Getenv("MQTT_COMMANDS_ENABLED"); commands != "" {
		if ce, err := strconv.ParseBool(commands); err == nil {
			config.MQTT.CommandsEnabled = ce
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		if f, err := strconv.ParseBool(file); err == nil {
			config.Logging.File = f
		}
	}

	if listen := os.Getenv("METRICS_LISTEN"); listen != "" {
		config.Metrics.Listen = listen
	}
	if path := os.Getenv("METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}
}

func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", closeErr)
		}
	}()

	_, err = file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func LoadOrCreateConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		config := DefaultConfig()

		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("default config validation failed: %w", err)
		}

		if err := SaveConfig(config, filename); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return config, nil
	}

	config, err := LoadConfig(filename)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func GenerateDefaultConfig(filename string) error {
	config := DefaultConfig()
	return SaveConfig(config, filename)
}

func (n *NotificationsConfig) GetBaseURL() string {
	if strings.TrimSpace(n.BaseURL) == "" {
		return DEFAULT_BASE_URL
	}
	return n.BaseURL
}

func (n *NotificationsConfig) GetPath() string {
	if strings.TrimSpace(n.Path) == "" {
		return DEFAULT_NOTIFICATIONS_PATH
	}
	return n.Path
}

func (n *NotificationsConfig) GetDialTimeout() time.Duration {
	if n.DialTimeout <= 0 {
		return time.Duration(DEFAULT_DIAL_TIMEOUT) * time.Second
	}
	return time.Duration(n.DialTimeout) * time.Second
}

// GetMaxReconnectAttempts falls back to the default ceiling when the value is unset.
func (n *NotificationsConfig) GetMaxReconnectAttempts() int {
	if n.MaxReconnectAttempts <= 0 {
		return DEFAULT_MAX_RECONNECT_ATTEMPTS
	}
	return n.MaxReconnectAttempts
}

func (n *NotificationsConfig) GetInitialRetryDelay() time.Duration {
	if n.InitialRetryDelay <= 0 {
		return time.Duration(DEFAULT_INITIAL_RETRY_DELAY_MS) * time.Millisecond
	}
	return time.Duration(n.InitialRetryDelay) * time.Millisecond
}

func (n *NotificationsConfig) GetMaxRetryDelay() time.Duration {
	if n.MaxRetryDelay <= 0 {
		return time.Duration(DEFAULT_MAX_RETRY_DELAY_MS) * time.Millisecond
	}
	return time.Duration(n.MaxRetryDelay) * time.Millisecond
}

func (m *MQTTConfig) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if m.UseTLS {
		scheme = "tls"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, m.Host, m.Port)
}

func (m *MetricsConfig) Enabled() bool {
	return strings.TrimSpace(m.Listen) != ""
}

func (m *MetricsConfig) GetPath() string {
	if strings.TrimSpace(m.Path) == "" {
		return DEFAULT_METRICS_PATH
	}
	return m.Path
}

func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Notifications: NotificationsConfig{
			BaseURL:              DEFAULT_BASE_URL,
			Path:                 DEFAULT_NOTIFICATIONS_PATH,
			DialTimeout:          DEFAULT_DIAL_TIMEOUT,
			MaxReconnectAttempts: DEFAULT_MAX_RECONNECT_ATTEMPTS,
			InitialRetryDelay:    DEFAULT_INITIAL_RETRY_DELAY_MS,
			MaxRetryDelay:        DEFAULT_MAX_RETRY_DELAY_MS,
		},
		Credentials: CredentialsConfig{
			Token:    "",
			StoreDir: "",
		},
		MQTT: MQTTConfig{
			Host:            "localhost",
			Port:            1883,
			Username:        "",
			Password:        "",
			UseTLS:          false,
			ClientID:        "wappi2mqtt",
			TopicPrefix:     "wappi",
			QoS:             0,
			Retain:          false,
			AutoReconnect:   true,
			CommandsEnabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   false,
		},
		Metrics: MetricsConfig{
			Listen: "",
			Path:   DEFAULT_METRICS_PATH,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("notifications config validation failed: %w", err)
	}

	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt config validation failed: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config validation failed: %w", err)
	}

	validEnvs := []string{"development", "production", "testing"}
	found := false
	for _, env := range validEnvs {
		if c.Environment == env {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid environment '%s', must be one of: %s", c.Environment, strings.Join(validEnvs, ", "))
	}

	return nil
}

func (n *NotificationsConfig) Validate() error {
	if strings.TrimSpace(n.BaseURL) != "" {
		u, err := url.Parse(n.BaseURL)
		if err != nil {
			return fmt.Errorf("notifications base url is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("notifications base url scheme must be http or https, got '%s'", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("notifications base url must include a host, got '%s'", n.BaseURL)
		}
	}

	if n.Path != "" && !strings.HasPrefix(n.Path, "/") {
		return fmt.Errorf("notifications path must start with '/', got '%s'", n.Path)
	}

	if n.DialTimeout < 0 {
		return fmt.Errorf("notifications dial timeout must be non-negative, got %d", n.DialTimeout)
	}

	if n.MaxReconnectAttempts < 0 {
		return fmt.Errorf("notifications max reconnect attempts must be non-negative, got %d", n.MaxReconnectAttempts)
	}

	if n.InitialRetryDelay < 0 || n.MaxRetryDelay < 0 {
		return fmt.Errorf("notifications retry delays must be non-negative, got %d/%d", n.InitialRetryDelay, n.MaxRetryDelay)
	}

	if n.InitialRetryDelay > 0 && n.MaxRetryDelay > 0 && n.InitialRetryDelay > n.MaxRetryDelay {
		return fmt.Errorf("notifications initial retry delay (%d) exceeds max retry delay (%d)", n.InitialRetryDelay, n.MaxRetryDelay)
	}

	return nil
}

func (m *MQTTConfig) Validate() error {
	if strings.TrimSpace(m.Host) == "" {
		return fmt.Errorf("mqtt host cannot be empty")
	}

	if m.Port <= 0 || m.Port > 65535 {
		return fmt.Errorf("mqtt port must be between 1 and 65535, got %d", m.Port)
	}

	if strings.TrimSpace(m.ClientID) == "" {
		return fmt.Errorf("mqtt client ID cannot be empty")
	}

	if strings.TrimSpace(m.TopicPrefix) == "" {
		return fmt.Errorf("mqtt topic prefix cannot be empty")
	}

	if m.QoS > 2 {
		return fmt.Errorf("mqtt QoS must be 0, 1, or 2, got %d", m.QoS)
	}

	if strings.HasPrefix(m.TopicPrefix, "/") || strings.HasSuffix(m.TopicPrefix, "/") {
		return fmt.Errorf("mqtt topic prefix should not start or end with '/', got '%s'", m.TopicPrefix)
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	found := false
	level := strings.ToLower(l.Level)
	for _, validLevel := range validLevels {
		if level == validLevel {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level '%s', must be one of: %s", l.Level, strings.Join(validLevels, ", "))
	}

	validFormats := []string{"text", "json"}
	found = false
	format := strings.ToLower(l.Format)
	for _, validFormat := range validFormats {
		if format == validFormat {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format '%s', must be one of: %s", l.Format, strings.Join(validFormats, ", "))
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Path != "" && !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics path must start with '/', got '%s'", m.Path)
	}
	return nil
}
