package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outpass/config"
	"outpass/internal/api"
	"outpass/internal/core"
	"outpass/internal/logging"
	"outpass/internal/notify"
	"outpass/internal/qrtoken"
	"outpass/internal/storage/sqlite"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
	notifyQueueSize   = 64
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load .env if present; real environment wins
	_ = godotenv.Load()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	// Initialize database
	logger.Info("initializing database", "path", cfg.Database.Path)
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	clock := &core.RealClock{}

	// Notification pipeline: queue, sender, dispatcher worker
	var queue notify.Queue
	switch cfg.Notify.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Notify.RedisAddr})
		queue = notify.NewRedisQueue(client, cfg.Notify.QueueKey)
		logger.Info("using redis notification queue", "addr", cfg.Notify.RedisAddr)
	default:
		queue = notify.NewInMemory(notifyQueueSize)
	}

	var sender notify.Sender
	if cfg.Notify.TelegramToken != "" {
		sender, err = notify.NewTelegramSender(cfg.Notify.TelegramToken)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram sender: %w", err)
		}
		logger.Info("parent notifications via telegram")
	} else {
		sender = notify.NewLogSender(logger)
		logger.Info("no telegram token configured, notifications are logged only")
	}

	dispatcher := notify.NewDispatcher(db, sender, queue, logger)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go func() {
		if err := dispatcher.Run(dispatchCtx); err != nil && dispatchCtx.Err() == nil {
			logger.Error("notification dispatcher stopped", "error", err)
		}
	}()

	// Core services
	codec := qrtoken.NewCodec(cfg.Security.QRSigningKey, cfg.Security.TokenIssuer, clock.Now)
	manager := core.NewOutpassManager(db, codec, dispatcher, clock, logger)
	validator := core.NewScanValidator(db, codec, clock, logger)
	reconciler := core.NewLogReconciler(db, dispatcher, clock, logger)

	// HTTP server
	router := api.NewRouter(api.RouterConfig{
		Storage:         db,
		Manager:         manager,
		Validator:       validator,
		Reconciler:      reconciler,
		Clock:           clock,
		LoginSigningKey: cfg.Security.LoginSigningKey,
		TokenIssuer:     cfg.Security.TokenIssuer,
		LoginTTL:        time.Duration(cfg.Security.LoginTTLMinutes) * time.Minute,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("starting graceful shutdown", "signal", sig.String())

		stopDispatch()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("graceful shutdown complete")
	}

	return nil
}
