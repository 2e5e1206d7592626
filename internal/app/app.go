package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yeonsu-dev/stagepass/internal/auth"
	"github.com/yeonsu-dev/stagepass/internal/config"
	"github.com/yeonsu-dev/stagepass/internal/postgres"
	redisx "github.com/yeonsu-dev/stagepass/internal/redis"
	pgrepo "github.com/yeonsu-dev/stagepass/internal/repository/postgres"
	redisrepo "github.com/yeonsu-dev/stagepass/internal/repository/redis"
	"github.com/yeonsu-dev/stagepass/internal/service"
	"github.com/yeonsu-dev/stagepass/internal/service/catalog"
	"github.com/yeonsu-dev/stagepass/internal/service/reservation"
	"github.com/yeonsu-dev/stagepass/internal/service/users"
	httpgin "github.com/yeonsu-dev/stagepass/internal/transport/http/gin"
)

const (
	reserveRateLimit  = 10
	reserveRateWindow = time.Minute
	idemResultTTL     = 24 * time.Hour
	showListTTL       = 30 * time.Second
	maxRetryDelay     = 25 * time.Millisecond
	shutdownTimeout   = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool   *pgxpool.Pool
	rdb    *redis.Client
	pubsub *redisx.ShowsPubSub
	cache  *redisrepo.Cache
	srv    *http.Server
}

// New connects to postgres and redis and assembles the full service stack
// behind an http.Server. The returned App is ready to Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store := pgrepo.NewStore(pool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewShowsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "reserve", reserveRateLimit, reserveRateWindow)
	idem := redisrepo.NewIdempotencyStore(rdb, idemResultTTL)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	services := service.NewServices(store, cache, pubsub, limiter, tokens, pgrepo.IsRetryable, service.Config{
		Users:       users.Config{SignupBonus: cfg.Points.SignupBonus},
		Catalog:     catalog.Config{ShowListTTL: showListTTL},
		Reservation: reservation.Config{MaxRetryDelay: maxRetryDelay},
	})

	router := httpgin.NewRouter(services, idem, tokens, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		rdb:    rdb,
		pubsub: pubsub,
		cache:  cache,
		srv:    srv,
	}, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully and
// closes the backing connections.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", a.srv.Addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return a.srv.Shutdown(shutdownCtx)
	})

	// Another replica's commit invalidates this node's show cache.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gctx, func(ctx context.Context, showID int64) {
			if err := a.cache.InvalidateShow(ctx, showID); err != nil {
				a.logger.Warn("cache invalidation failed",
					slog.Int64("show_id", showID),
					slog.Any("error", err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err := g.Wait()

	a.pool.Close()
	if cerr := a.rdb.Close(); cerr != nil {
		a.logger.Warn("redis close failed", slog.Any("error", cerr))
	}

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
