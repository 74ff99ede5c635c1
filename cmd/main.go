package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wappi2mqtt/config"
	"wappi2mqtt/credentials"
	"wappi2mqtt/logger"
	"wappi2mqtt/metrics"
	"wappi2mqtt/mqtt"
	"wappi2mqtt/notify"
	"wappi2mqtt/retry"
	"wappi2mqtt/session"
	"wappi2mqtt/version"
	"wappi2mqtt/websocket"
)

const (
	DEFAULT_CONFIG_FILE = "config.yaml"

	SHUTDOWN_TIMEOUT = 10 * time.Second
)

type App struct {
	config     *config.Config
	client     *notify.Client
	watcher    *session.Watcher
	store      credentials.Store
	mqttClient mqtt.MQTTClient
	bridge     *mqtt.Bridge
	commander  *mqtt.Commander
	registry   *prometheus.Registry
	logger     logger.Logger
}

func NewApp(configFile string) (*App, error) {
	cfg, err := config.LoadOrCreateConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logger.New(&cfg.Logging, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := newCredentialStore(&cfg.Credentials, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := notify.NewClient(
		cfg.Notifications.GetBaseURL(),
		notify.WithPath(cfg.Notifications.GetPath()),
		notify.WithDialer(websocket.NewNetDialer(cfg.Notifications.GetDialTimeout(), logger)),
		notify.WithRetry(retry.NewManager(
			retry.WithMaxAttempts(cfg.Notifications.GetMaxReconnectAttempts()),
			retry.WithDelays(cfg.Notifications.GetInitialRetryDelay(), cfg.Notifications.GetMaxRetryDelay()),
			retry.WithLogger(logger),
		)),
		notify.WithRecorder(metrics.NewNotificationMetrics(registry)),
		notify.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification client: %w", err)
	}

	mqttClient := mqtt.NewPahoClient(&cfg.MQTT, logger)
	bridge := mqtt.NewBridge(mqttClient, &cfg.MQTT, logger)
	watcher := session.Attach(client, bridge.Handlers(), logger)

	return &App{
		config:     cfg,
		client:     client,
		watcher:    watcher,
		store:      store,
		mqttClient: mqttClient,
		bridge:     bridge,
		commander:  mqtt.NewCommander(watcher, store, logger),
		registry:   registry,
		logger:     logger,
	}, nil
}

// newCredentialStore keeps the token on disk when a store directory is
// configured. A configured token replaces whatever was stored.
func newCredentialStore(cfg *config.CredentialsConfig, logger logger.Logger) (credentials.Store, error) {
	var store credentials.Store = credentials.NewMemory("")
	if cfg.StoreDir != "" {
		store = credentials.NewFile(cfg.StoreDir, logger)
	}

	if cfg.Token != "" {
		if err := store.Set(cfg.Token); err != nil {
			return nil, fmt.Errorf("failed to store configured token: %w", err)
		}
	}
	return store, nil
}

// Close releases the notification client. The app cannot be run afterwards.
func (a *App) Close() {
	a.watcher.Detach()
	a.client.Close()
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting wappi2mqtt %s", version.Version)

	if a.config.Metrics.Enabled() {
		server := a.startMetricsServer()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("Failed to stop metrics server: %v", err)
			}
		}()
	}

	if err := a.mqttClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	defer func() {
		if err := a.mqttClient.Disconnect(); err != nil {
			a.logger.Error("Failed to disconnect from MQTT broker: %v", err)
		}
	}()

	if a.config.MQTT.CommandsEnabled {
		commandTopic := a.bridge.Topics().Commands()
		if err := a.mqttClient.Subscribe(commandTopic, a.commander.HandleCommand); err != nil {
			a.logger.Warn("Failed to subscribe to command topic %s: %v", commandTopic, err)
		} else {
			a.logger.Info("Subscribed to command topic: %s", commandTopic)
			defer func() {
				if err := a.mqttClient.Unsubscribe(commandTopic); err != nil {
					a.logger.Warn("Failed to unsubscribe from command topic %s: %v", commandTopic, err)
				}
			}()
		}
	}

	a.bridge.PublishState(mqtt.STATE_DISCONNECTED)

	if err := a.watcher.ConnectFromStore(a.store); err != nil {
		if !errors.Is(err, session.ErrNoCredential) {
			return fmt.Errorf("failed to connect to notifications: %w", err)
		}
		a.logger.Warn("No notification token configured; waiting for a connect command")
	} else {
		a.logger.Info("Connecting to notifications at %s", a.client.URL())
	}
	defer a.watcher.Disconnect()

	<-ctx.Done()
	a.logger.Info("Shutting down...")

	return nil
}

func (a *App) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle(a.config.Metrics.GetPath(), promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              a.config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Serving metrics on %s%s", server.Addr, a.config.Metrics.GetPath())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed: %v", err)
		}
	}()
	return server
}

func main() {
	configFile := flag.String("config", DEFAULT_CONFIG_FILE, "Configuration file path")
	generateConfig := flag.Bool("generate-config", false, "Generate a default configuration file and exit")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wappi2mqtt version %s\n", version.Version)
		fmt.Printf("Git Commit: %s\n", version.GitCommit)
		fmt.Printf("Git URL: %s\n", version.GitURL)
		fmt.Printf("Build Date: %s\n", version.BuildDate)
		return
	}

	if *generateConfig {
		err := config.GenerateDefaultConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Default configuration generated at %s\n", *configFile)
		return
	}

	app, err := NewApp(*configFile)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sigCount := 0
		for {
			<-sigChan
			sigCount++
			if sigCount == 1 {
				log.Println("Received shutdown signal")
				log.Println("Initiating graceful shutdown... (press Ctrl+C again to force quit)")
				cancel()

				go func() {
					time.Sleep(SHUTDOWN_TIMEOUT)
					log.Println("Force shutdown after 10 seconds")
					os.Exit(1)
				}()
			} else {
				log.Println("Force quit requested")
				os.Exit(1)
			}
		}
	}()

	if err := app.Run(ctx); err != nil {
		app.Close()
		log.Fatalf("Application error: %v", err)
	}

	log.Println("Application shutdown complete")
}
