package config

type Config struct {
	Environment   string              `yaml:"environment" env:"ENVIRONMENT"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

type NotificationsConfig struct {
	BaseURL              string `yaml:"base_url" env:"NOTIFY_BASE_URL"`
	Path                 string `yaml:"path" env:"NOTIFY_PATH"`
	DialTimeout          int    `yaml:"dial_timeout" env:"NOTIFY_DIAL_TIMEOUT"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts" env:"NOTIFY_MAX_RECONNECT_ATTEMPTS"`
	InitialRetryDelay    int    `yaml:"initial_retry_delay_ms" env:"NOTIFY_INITIAL_RETRY_DELAY_MS"`
	MaxRetryDelay        int    `yaml:"max_retry_delay_ms" env:"NOTIFY_MAX_RETRY_DELAY_MS"`
}

type CredentialsConfig struct {
	Token    string `yaml:"token" env:"NOTIFY_TOKEN"`
	StoreDir string `yaml:"store_dir" env:"NOTIFY_CREDENTIALS_DIR"`
}

type MQTTConfig struct {
	Host            string `yaml:"host" env:"MQTT_HOST"`
	Port            int    `yaml:"port" env:"MQTT_PORT"`
	Username        string `yaml:"username" env:"MQTT_USERNAME"`
	Password        string `yaml:"password" env:"MQTT_PASSWORD"`
	UseTLS          bool   `yaml:"use_tls" env:"MQTT_USE_TLS"`
	ClientID        string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	TopicPrefix     string `yaml:"topic_prefix" env:"MQTT_TOPIC_PREFIX"`
	QoS             byte   `yaml:"qos" env:"MQTT_QOS"`
	Retain          bool   `yaml:"retain" env:"MQTT_RETAIN"`
	AutoReconnect   bool   `yaml:"auto_reconnect" env:"MQTT_AUTO_RECONNECT"`
	CommandsEnabled bool   `yaml:"commands_enabled" env:"MQTT_COMMANDS_ENABLED"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	File   bool   `yaml:"file" env:"LOG_FILE"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen" env:"METRICS_LISTEN"`
	Path   string `yaml:"path" env:"METRICS_PATH"`
}
