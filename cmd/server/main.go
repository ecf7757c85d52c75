/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the CargoLink ledger service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Initialize structured logging
  3. Initialize SQLite store
  4. Create the ledger engine (optionally with a Kafka publisher)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional YAML config file path
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database
  -addr    HTTP listen address (overrides config)

ENVIRONMENT:
  LEDGER_ADDR, LEDGER_DB_PATH, LEDGER_KAFKA_BROKERS, LEDGER_KAFKA_TOPIC,
  LEDGER_LOG_LEVEL, LEDGER_SHUTDOWN_TIMEOUT_SECONDS. A .env file in the
  working directory is picked up automatically.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close the Kafka writer and the database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/cargolink.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with Kafka events
  LEDGER_KAFKA_BROKERS=localhost:9092 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cargolink/ledger-engine/api"
	"github.com/cargolink/ledger-engine/config"
	"github.com/cargolink/ledger-engine/events/kafka"
	"github.com/cargolink/ledger-engine/ledger"
	"github.com/cargolink/ledger-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file path")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := config.NewLogger(cfg.Log)

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize engine
	engine := ledger.NewEngine(store).WithLogger(log)

	var publisher *kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		engine = engine.WithPublisher(publisher)
		log.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("kafka publisher enabled")
	}

	// Create router
	handler := api.NewHandler(engine)
	if os.Getenv("LEDGER_ENABLE_SCENARIOS") == "true" {
		handler = handler.WithResetter(store)
		log.Warn("demo scenario endpoints enabled")
	}
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr": cfg.Server.Addr,
			"db":   cfg.DB.Path,
		}).Info("ledger service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("server stopped")
}
