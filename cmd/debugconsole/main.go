package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/debugconsole/internal/auth"
	"github.com/telhawk-systems/debugconsole/internal/config"
	"github.com/telhawk-systems/debugconsole/internal/debugevent"
	"github.com/telhawk-systems/debugconsole/internal/handlers"
	"github.com/telhawk-systems/debugconsole/internal/logging"
	"github.com/telhawk-systems/debugconsole/internal/messaging"
	"github.com/telhawk-systems/debugconsole/internal/repository"
	"github.com/telhawk-systems/debugconsole/internal/server"
	"github.com/telhawk-systems/debugconsole/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("debugconsole"))
	logging.SetDefault(logger)

	slog.Info("Starting debug console service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("timezone", cfg.Recorder.Timezone),
	)

	ctx := context.Background()

	var repo repository.Repository
	if cfg.Database.Type == "postgres" {
		connString := cfg.Database.Postgres.ConnString()

		slog.Info("Running database migrations", slog.String("dir", cfg.Database.MigrationsDir))
		if err := runMigrations(cfg.Database.MigrationsDir, connString); err != nil {
			slog.Error("Failed to run migrations", logging.Error(err))
			os.Exit(1)
		}

		slog.Info("Connecting to PostgreSQL",
			slog.String("host", cfg.Database.Postgres.Host),
			slog.Int("port", cfg.Database.Postgres.Port),
			slog.String("database", cfg.Database.Postgres.Database),
		)
		pgRepo, err := repository.NewPostgresRepository(ctx, connString)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", logging.Error(err))
			os.Exit(1)
		}
		defer pgRepo.Close()
		repo = pgRepo
	} else {
		slog.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}

	recorderOpts := []debugevent.Option{
		debugevent.WithClock(debugevent.NewSystemClock(cfg.Recorder.Location())),
		debugevent.WithDefaultSource(cfg.Recorder.DefaultSource),
	}

	var (
		forwarder  *messaging.Forwarder
		natsClient *messaging.Client
	)
	if cfg.NATS.Enabled {
		natsCfg := messaging.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait

		client, err := messaging.NewClient(natsCfg, slog.Default())
		if err != nil {
			slog.Error("Failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		defer client.Close()
		natsClient = client

		forwarder = messaging.NewForwarder(client, cfg.NATS.Subject, slog.Default().With(slog.String("component", "forwarder")))
		recorderOpts = append(recorderOpts, debugevent.WithNotifier(forwarder))
		slog.Info("Forwarding debug events to NATS", slog.String("url", cfg.NATS.URL), logging.Subject(cfg.NATS.Subject))
	}

	// Events are mirrored under the logger name the console has always used.
	recorder := debugevent.NewRecorder(repo, slog.Default().With(slog.String("logger", "admin_debug")), recorderOpts...)

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		slog.Warn("auth.jwt_secret is empty; bearer tokens are disabled")
	}

	handler := handlers.NewHandler(recorder, repo, slog.Default())
	if natsClient != nil {
		handler.WithBroker(natsClient)
	}
	opts := server.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Auth:           auth.NewMiddleware(verifier, slog.Default()),
		Logger:         slog.Default().With(slog.String("component", "http")),
	}

	if cfg.Redis.Enabled {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("Invalid Redis URL", logging.Error(err))
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to Redis", logging.Error(err))
			os.Exit(1)
		}

		store := session.NewRedisStore(redisClient, cfg.Redis.SessionTTL)
		sessions := session.NewMiddleware(store, slog.Default(), cfg.Auth.CookieDomain, cfg.Auth.CookieSecure)
		handler.WithSessions(store, sessions)
		opts.Sessions = sessions
		slog.Info("Session storage enabled", slog.Duration("ttl", cfg.Redis.SessionTTL))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Debug console listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}
	if forwarder != nil {
		forwarder.Wait()
	}

	slog.Info("Server stopped gracefully")
}

func runMigrations(dir, connString string) error {
	m, err := migrate.New("file://"+dir, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("Could not get migration version", logging.Error(err))
		return nil
	}
	slog.Info("Database migration complete",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
