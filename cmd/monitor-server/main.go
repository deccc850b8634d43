package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/panoptes-nms/panoptes-server/internal/api"
	"github.com/panoptes-nms/panoptes-server/internal/cloud"
	"github.com/panoptes-nms/panoptes-server/internal/config"
	"github.com/panoptes-nms/panoptes-server/internal/integration"
	"github.com/panoptes-nms/panoptes-server/internal/monitor"
	"github.com/panoptes-nms/panoptes-server/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/monitor-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database, or fall back to the in-memory store
	var store storage.Store
	if cfg.Database.DSN != "" {
		pgStore, err := storage.NewPostgresStore(cfg.Database.DSN, []byte(cfg.Cloud.EncryptionKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		store = pgStore
		log.Info().Msg("Connected to database")
	} else {
		store = storage.NewMemoryStore()
		log.Warn().Msg("No database configured, credential records will not survive restarts")
	}
	defer store.Close()

	// Cloud API plumbing: issuer, token cache, gateway client
	issuer := cloud.NewIssuer(cfg.Cloud.RequestTimeout, cfg.Cloud.TokenSafetyMargin)
	cache := cloud.NewTokenCache(issuer, store)
	if err := cache.LoadPersisted(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to load persisted credentials")
	}
	client := cloud.NewClient(&cfg.Cloud, cache)

	// Optional NATS connection for event fan-out
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("panoptes-monitor-server"),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
			nc = nil
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	// Event forwarder (NATS / MQTT / webhook targets)
	forwarder := integration.NewForwarder(nc, cfg.NATS.SubjectPrefix, cfg.Forwarder)
	defer forwarder.Close()

	// Monitor orchestration and guided setup
	svc := monitor.NewService(client, store, forwarder)
	setup := monitor.NewSetupFlow(issuer, cache, cfg.Cloud.IdentityURL)

	// REST API server
	apiServer := api.NewRESTServer(cfg, store, svc, setup, issuer, cache)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	log.Info().Msg("Monitor server stopped")
}
