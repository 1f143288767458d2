// Package results собирает процесс, принимающий результаты генерации
// из очереди и завершающий запросы.
package results

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/cortex/internal/config"
	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/services/generation"
	"github.com/magabrotheeeer/cortex/internal/services/ledger"
	"github.com/magabrotheeeer/cortex/internal/storage/repository"
)

// App потребитель очереди результатов генерации.
type App struct {
	generationService *generation.Service
	db                *repository.Storage
	conn              *amqp.Connection
	ch                *amqp.Channel
	workers           int
	logger            *slog.Logger
}

// New подключается к базе и брокеру.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.results.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetTopology(), cfg.Prefetch)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	generationService := generation.New(db, db, ledger.New(db, logger), generation.NewQueueDispatcher(ch), logger)

	return &App{
		generationService: generationService,
		db:                db,
		conn:              conn,
		ch:                ch,
		workers:           cfg.Workers,
		logger:            logger,
	}, nil
}

// Run обрабатывает результаты до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.ResultsQueue, a.workers, a.generationService.HandleResult)
	if err != nil {
		a.logger.Error("failed to start results consumer", sl.Err(err))
	}

	a.logger.Info("generation results consumer shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return err
}
