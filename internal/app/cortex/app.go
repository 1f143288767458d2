package cortex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/cortex/internal/cache"
	"github.com/magabrotheeeer/cortex/internal/config"
	authhandler "github.com/magabrotheeeer/cortex/internal/http/handlers/auth"
	galleryhandler "github.com/magabrotheeeer/cortex/internal/http/handlers/gallery"
	generationhandler "github.com/magabrotheeeer/cortex/internal/http/handlers/generation"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/health"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/stats"
	subscriptionhandler "github.com/magabrotheeeer/cortex/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/tokens"
	"github.com/magabrotheeeer/cortex/internal/http/handlers/user"
	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/lib/jwt"
	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/migrations"
	"github.com/magabrotheeeer/cortex/internal/services/account"
	"github.com/magabrotheeeer/cortex/internal/services/auth"
	"github.com/magabrotheeeer/cortex/internal/services/gallery"
	"github.com/magabrotheeeer/cortex/internal/services/generation"
	"github.com/magabrotheeeer/cortex/internal/services/ledger"
	"github.com/magabrotheeeer/cortex/internal/services/notification"
	"github.com/magabrotheeeer/cortex/internal/services/subscription"
	"github.com/magabrotheeeer/cortex/internal/storage/objectstore"
	"github.com/magabrotheeeer/cortex/internal/storage/repository"
)

// App HTTP API вместе с его соединениями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключается к базе, Redis, брокеру и хранилищу файлов, применяет
// миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.cortex.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetTopology(), cfg.Prefetch)
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uploader, err := objectstore.NewUploader(cfg.ObjectStorage)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	notifier := notification.New(ch, logger)

	ledgerService := ledger.New(db, logger)
	generationService := generation.New(db, db, ledgerService, generation.NewQueueDispatcher(ch), logger)
	subscriptionService := subscription.New(db, db, ledgerService, cacheRedis, notifier, logger)
	galleryService := gallery.New(db, logger)
	authService := auth.New(db, jwtMaker, notifier, logger)
	accountService := account.New(db, uploader, cfg.MaxFileSize, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger,
		Handlers{
			Auth:         authhandler.New(logger, authService),
			User:         user.New(logger, accountService, cfg.MaxFileSize),
			Subscription: subscriptionhandler.New(logger, subscriptionService),
			Tokens:       tokens.New(logger, ledgerService),
			Generation:   generationhandler.New(logger, generationService),
			Gallery:      galleryhandler.New(logger, galleryService),
			Stats:        stats.New(logger, galleryService),
			Health: health.New(logger, map[string]health.Pinger{
				"postgres": db,
				"redis":    cacheRedis,
			}),
		},
		Guards{
			Parser:   jwtMaker,
			Accounts: db,
			Limiter:  middlewarectx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
			CORS:     NewCORS(cfg.CORSOrigins),
		},
	)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
