// Tradegate - authentication service for the trade-data platform.
//
// Tradegate issues short-lived signed access tokens, manages rotating
// single-use refresh sessions, and verifies passwords stored under the
// schema and algorithm shapes accumulated across past deployments.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/quaymark/tradegate/migrations"

	"github.com/quaymark/tradegate/internal/api"
	"github.com/quaymark/tradegate/internal/audit"
	"github.com/quaymark/tradegate/internal/auth"
	"github.com/quaymark/tradegate/internal/infrastructure/config"
	"github.com/quaymark/tradegate/internal/infrastructure/database"
	"github.com/quaymark/tradegate/internal/infrastructure/events"
	"github.com/quaymark/tradegate/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// sessionSweepInterval is how often expired refresh sessions are purged.
// Expiry is also enforced lazily on use; the sweep only bounds table growth.
const sessionSweepInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tradegate", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire the auth core
	authLog := log.With("component", "auth")
	credStore := auth.NewCredentialStore(db.DB, authLog.Logger)
	sessionStore := auth.NewSessionStore(db.DB)
	verifier := auth.NewVerifier(cfg.Auth.AllowPlaintext, authLog.Logger)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.AccessTTL())

	service := auth.NewService(credStore, sessionStore, verifier, issuer, cfg.Auth.RefreshTTL(), authLog.Logger)

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)
	service.WithRecorder(audit.NewRecorder(auditRepo, log.Logger))

	// Auth event publishing (optional)
	if cfg.Events.Enabled {
		publisher, pubErr := events.Connect(cfg.Events, log.Logger)
		if pubErr != nil {
			return fmt.Errorf("connecting to event broker: %w", pubErr)
		}
		defer func() {
			log.Info("disconnecting from event broker")
			publisher.Close()
		}()
		service.WithEvents(publisher)
		log.Info("event broker connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Events.Host, cfg.Events.Port),
			"client_id", cfg.Events.ClientID,
		)
	} else {
		log.Info("event publishing disabled")
	}

	// Seed the first admin account on an empty database
	if _, seedErr := auth.SeedAdmin(ctx, db.DB, credStore, authLog.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// API server
	server, err := api.New(api.Deps{
		Config:  cfg.Server,
		Auth:    cfg.Auth,
		Logger:  log,
		Service: service,
		Store:   credStore,
		Audit:   auditRepo,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("shutting down API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Purge expired refresh sessions in the background
	go sweepSessions(ctx, sessionStore, log)

	log.Info("tradegate ready",
		"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"dev_endpoints", cfg.Auth.DevEndpoints,
	)

	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// sweepSessions periodically deletes expired refresh sessions until the
// context is cancelled.
func sweepSessions(ctx context.Context, sessions auth.SessionStore, log *logging.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn("session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("expired sessions purged", "count", deleted)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses TRADEGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TRADEGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
