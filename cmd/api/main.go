package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/opsdesk/security-core/internal/api"
	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/core/ports"
	"github.com/opsdesk/security-core/internal/core/service"
	mongostore "github.com/opsdesk/security-core/internal/infrastructure/db/mongo"
	redisstore "github.com/opsdesk/security-core/internal/infrastructure/db/redis"
	"github.com/opsdesk/security-core/internal/infrastructure/filestore"
	"github.com/opsdesk/security-core/internal/infrastructure/queue"
	"github.com/opsdesk/security-core/internal/pkg/config"
	"github.com/opsdesk/security-core/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title OpsDesk Security Core API
// @version 1.0
// @description Credential verification, session tokens and the security audit trail of the OpsDesk dashboard.

// @contact.name OpsDesk Platform
// @contact.email platform@opsdesk.io

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "security-core",
	})
	if envErr != nil {
		log.Debug().Msg(".env file not found, using process environment")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("security core stopped")
	}
}

// storage is the backend-specific half of the wiring.
type storage struct {
	store  ports.CredentialStore
	audit  ports.AttemptJournal
	alerts ports.AlertJournal
	mongo  *mongo.Database
	close  func()
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.SeedFile != "" {
		if err := seed(ctx, st.store, cfg.SeedFile, log); err != nil {
			return err
		}
	}

	var (
		notifier ports.AlertNotifier
		rdb      *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()

		dispatcher := queue.NewAlertDispatcher(0, redisstore.NewAlertPublisher(rdb, cfg.Redis.Channel), logger.Component("alert-dispatcher"))
		dispatcher.Start(context.WithoutCancel(ctx))
		defer dispatcher.Stop()
		notifier = dispatcher
		log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("alert fan-out enabled")
	}

	alerts, err := service.NewAlertStore(ctx, cfg.AlertCapacity, st.alerts, notifier, logger.Component("alerts"))
	if err != nil {
		return fmt.Errorf("alert store: %w", err)
	}
	detector := service.NewDetector(service.DetectorConfig{Window: cfg.DetectionWindow}, alerts, logger.Component("detector"))
	audit, err := service.NewAuditTrail(ctx, cfg.AuditCapacity, st.audit, detector, logger.Component("audit"))
	if err != nil {
		return fmt.Errorf("audit trail: %w", err)
	}

	auth := service.NewAuthService(st.store, audit, detector, service.AuthOptions{
		JWTSecret:  cfg.JWTSecret,
		BcryptCost: cfg.BcryptCost,
		LegacyBootstrap: service.LegacyBootstrap{
			Enabled:  cfg.Legacy.Enabled,
			Password: cfg.Legacy.Password,
		},
	}, logger.Component("auth"))
	if cfg.Legacy.Enabled {
		log.Warn().Msg("legacy credential bootstrap is enabled")
	}
	reports := service.NewReportService(audit, alerts)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepSchedule, func() {
		if n := detector.Sweep(); n > 0 {
			log.Debug().Int("removed", n).Int("tracked", detector.TrackedKeys()).Msg("rate-limit sweep")
		}
	}); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", cfg.SweepSchedule, err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}
	e := api.NewRouter(api.RouterDeps{
		Auth:           auth,
		Reports:        reports,
		Mongo:          st.mongo,
		Redis:          rdb,
		Log:            logger.Component("http"),
		TrustedProxies: proxies,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.StorageBackend).
			Int("audit_entries", audit.Len()).
			Int("alerts", alerts.Len()).
			Msg("security core listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.StorageBackend == config.BackendMongo {
		return openMongoStorage(ctx, cfg, log)
	}
	return openFileStorage(cfg, log)
}

func openFileStorage(cfg *config.Config, log zerolog.Logger) (*storage, error) {
	fsLog := logger.Component("filestore")
	store, err := filestore.OpenPrincipalStore(filepath.Join(cfg.DataDir, "employees.json"), fsLog)
	if err != nil {
		return nil, err
	}
	audit, err := filestore.OpenJournal[domain.LoginAttempt](filepath.Join(cfg.DataDir, "login_attempts.jsonl"), fsLog)
	if err != nil {
		return nil, err
	}
	alerts, err := filestore.OpenJournal[domain.SecurityAlert](filepath.Join(cfg.DataDir, "security_alerts.jsonl"), fsLog)
	if err != nil {
		_ = audit.Close()
		return nil, err
	}

	log.Info().Str("dir", cfg.DataDir).Msg("file storage backend ready")
	return &storage{
		store:  store,
		audit:  audit,
		alerts: alerts,
		close: func() {
			_ = audit.Close()
			_ = alerts.Close()
		},
	}, nil
}

func openMongoStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	if err := mongostore.Prepare(ctx, db, cfg.AuditCapacity, cfg.AlertCapacity); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo storage backend ready")
	return &storage{
		store:  mongostore.NewPrincipalRepository(db),
		audit:  mongostore.NewJournal[domain.LoginAttempt](db, mongostore.AuditCollection),
		alerts: mongostore.NewJournal[domain.SecurityAlert](db, mongostore.AlertsCollection),
		mongo:  db,
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(ctx)
		},
	}, nil
}

func seed(ctx context.Context, store ports.CredentialStore, path string, log zerolog.Logger) error {
	principals, err := filestore.ReadSeed(path)
	if err != nil {
		return err
	}
	for _, p := range principals {
		if err := store.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed %s: %w", p.EmployeeID, err)
		}
	}
	log.Info().Str("file", path).Int("employees", len(principals)).Msg("seed applied")
	return nil
}
