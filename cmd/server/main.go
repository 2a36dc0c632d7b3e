package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-hris-auth/auth"
	"github.com/jrsteele09/go-hris-auth/internal/config"
	"github.com/jrsteele09/go-hris-auth/internal/database"
	"github.com/jrsteele09/go-hris-auth/internal/kv"
	"github.com/jrsteele09/go-hris-auth/internal/observability"
	"github.com/jrsteele09/go-hris-auth/server"
	"github.com/jrsteele09/go-hris-auth/tenants"
	tenantrepofakes "github.com/jrsteele09/go-hris-auth/tenants/repofakes"
	"github.com/jrsteele09/go-hris-auth/throttle"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-hris-auth/token/refresh/repofake"
	"github.com/jrsteele09/go-hris-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-hris-auth/users/repofake"
	"github.com/rs/zerolog/log"
)

const (
	purgeInterval = time.Hour
	sweepInterval = time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %s\n", err)
	}
	c := config.New()
	observability.SetupLogger(c.GetEnv(), c.GetLogLevel())

	if err := observability.InitSentry(c.GetSentryDSN(), c.GetEnv()); err != nil {
		log.Warn().Err(err).Msg("sentry disabled")
	}
	defer observability.FlushSentry()

	if err := run(c); err != nil {
		log.Error().Err(err).Msg("error running server")
		observability.FlushSentry()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

// stores are the backing stores for one run, closed on shutdown.
type stores struct {
	tenants tenants.Repo
	users   usersStore
	refresh refresh.Repo
	kv      kv.Store
	checks  map[string]server.HealthCheck
	closers []func()
}

// usersStore is one value serving both the user and role repos.
type usersStore interface {
	users.UserRepo
	users.RoleRepo
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	displayAppname(c.GetAppName())

	st, err := openStores(ctx, c)
	if err != nil {
		return err
	}
	defer st.close()

	hasher := users.NewPasswordHasher(0)
	issuer, err := token.NewIssuer(c)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	refreshManager := refresh.NewManager(st.refresh, c, refresh.WithTenants(st.tenants))
	revocations := token.NewRevocationRegistry(st.kv)

	authService, err := auth.NewService(
		auth.Repos{Users: st.users, Tenants: st.tenants},
		auth.Tokens{Issuer: issuer, Refresh: refreshManager, Revocations: revocations},
		hasher,
	)
	if err != nil {
		return err
	}
	userService, err := users.NewService(st.users, st.users, hasher)
	if err != nil {
		return err
	}

	if c.GetSeedDemoData() {
		if err := server.InitialiseDemoData(ctx, st.tenants, st.users, userService); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	handler, err := server.New(c, server.Deps{
		Auth:         authService,
		Users:        userService,
		Tenants:      st.tenants,
		Throttle:     throttle.New(st.kv, c),
		Issuer:       issuer,
		Revocations:  revocations,
		HealthChecks: st.checks,
	})
	if err != nil {
		return err
	}

	go purgeRefreshTokens(ctx, refreshManager, c.GetRefreshRetention())

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// openStores uses postgres and redis when configured and falls back to the
// in-process stores otherwise.
func openStores(ctx context.Context, c config.Config) (*stores, error) {
	st := &stores{checks: make(map[string]server.HealthCheck)}

	if dsn := c.GetDatabaseURL(); dsn != "" {
		if c.GetRunMigrations() {
			if err := database.Migrate(dsn); err != nil {
				return nil, err
			}
		}
		pool, err := database.Connect(ctx, dsn, c.GetStoreTimeout())
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.checks["postgres"] = pool.Ping
		st.tenants = database.NewTenantRepo(pool)
		st.users = database.NewUserRepo(pool)
		st.refresh = database.NewRefreshTokenRepo(pool)
		logPool(pool)
	} else {
		log.Warn().Msg("no database configured, using in-memory repositories")
		userRepo := fakeuserrepo.NewFakeUserRepo()
		st.tenants = tenantrepofakes.NewFakeTenantRepo()
		st.users = userRepo
		st.refresh = refreshrepofake.NewFakeRefreshTokenRepo(userRepo)
	}

	if addr := c.GetRedisAddr(); addr != "" {
		redisStore := kv.NewRedisStore(kv.RedisOptions{
			Addr:     addr,
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
			Timeout:  c.GetStoreTimeout(),
		})
		if err := redisStore.Ping(ctx); err != nil {
			_ = redisStore.Close()
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = redisStore.Close() })
		st.kv = redisStore
		log.Info().Str("addr", addr).Msg("redis connected")
	} else {
		log.Warn().Msg("no redis configured, throttle and revocation state is local to this process")
		memoryStore := kv.NewMemoryStore()
		memoryStore.StartSweeper(ctx, sweepInterval)
		st.kv = memoryStore
	}
	st.checks["kv"] = st.kv.Ping

	return st, nil
}

func (st *stores) close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		st.closers[i]()
	}
}

func logPool(pool *pgxpool.Pool) {
	cfg := pool.Config()
	log.Info().Str("host", cfg.ConnConfig.Host).Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).Msg("postgres connected")
}

func purgeRefreshTokens(ctx context.Context, m *refresh.Manager, retention time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Purge(ctx, retention)
			if err != nil {
				log.Err(err).Msg("refresh token purge failed")
				observability.CaptureError(ctx, err, map[string]string{"job": "refresh-purge"})
				continue
			}
			if n > 0 {
				log.Info().Int64("removed", n).Msg("refresh tokens purged")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
