// @title           Access API
// @version         1.0
// @description     Session authentication, role-based access and user administration.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/api"
	"github.com/teaqnet/access-api/internal/api/handler"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/core/service"
	"github.com/teaqnet/access-api/internal/infrastructure/config"
	"github.com/teaqnet/access-api/internal/infrastructure/db/memory"
	mongostore "github.com/teaqnet/access-api/internal/infrastructure/db/mongo"
	"github.com/teaqnet/access-api/internal/infrastructure/db/postgres"
	redisstore "github.com/teaqnet/access-api/internal/infrastructure/db/redis"
	"github.com/teaqnet/access-api/pkg/logger"
)

const serviceName = "access-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		// the configured logger may not exist yet
		l := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
		l.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	sessions := service.NewSessionService(st.sessions, cfg.Session.Secret, logger.Component("sessions"),
		service.WithSessionTTL(cfg.Session.TTL),
		service.WithIssuer(cfg.Session.Issuer),
	)
	authService := service.NewAuthService(st.accounts, st.audit, sessions, logger.Component("auth"))
	adminService := service.NewAdminService(st.accounts, st.audit, sessions, logger.Component("admin"))
	historyService := service.NewHistoryService(st.audit, st.accounts, logger.Component("history"))
	guard := service.NewGuard(st.accounts, sessions, logger.Component("guard"))

	if cfg.Admin.Email != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	e := api.NewRouter(api.Dependencies{
		Auth:          authService,
		Sessions:      sessions,
		Guard:         guard,
		Admin:         adminService,
		History:       historyService,
		Probes:        st.probes,
		Log:           logger.Component("http"),
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		AuthRateLimit: cfg.HTTP.AuthRateLimit,
		AuthRateBurst: cfg.HTTP.AuthRateBurst,
		BodyLimit:     cfg.HTTP.BodyLimit,
		SecureCookies: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Str("sessions", cfg.Store.SessionDriver).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownAfter)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}

type stores struct {
	accounts ports.AccountRepository
	audit    ports.AuditRepository
	sessions ports.SessionStore
	probes   []handler.Probe
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured drivers. On error everything opened so
// far is closed.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *stores, err error) {
	st := &stores{}
	defer func() {
		if err != nil {
			st.close()
		}
	}()

	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Disconnect(context.Background()) })
		accounts := mongostore.NewAccountRepository(db)
		audit := mongostore.NewAuditRepository(db)
		if err := accounts.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		if err := audit.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		st.accounts, st.audit = accounts, audit
		st.probes = append(st.probes, handler.Probe{Name: "mongodb", Check: func(ctx context.Context) error {
			return mongostore.Ping(ctx, client)
		}})
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongodb store")

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(db); err != nil {
			return nil, err
		}
		st.accounts = postgres.NewAccountRepository(db)
		st.audit = postgres.NewAuditRepository(db)
		st.probes = append(st.probes, handler.Probe{Name: "postgres", Check: db.PingContext})
		log.Info().Msg("using postgres store")

	default:
		st.accounts = memory.NewAccountRepository()
		st.audit = memory.NewAuditRepository()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	}

	switch cfg.Store.SessionDriver {
	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.sessions = redisstore.NewSessionStore(client)
		st.probes = append(st.probes, handler.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisstore.Ping(ctx, client)
		}})
	default:
		st.sessions = memory.NewSessionStore()
	}

	return st, nil
}
