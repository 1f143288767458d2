package repository_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/cortex/internal/migrations"
	"github.com/magabrotheeeer/cortex/internal/models"
	"github.com/magabrotheeeer/cortex/internal/storage/repository"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// setupStorage поднимает PostgreSQL в контейнере и применяет миграции.
func setupStorage(t *testing.T) *repository.Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := repository.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	projectRoot, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(projectRoot, "migrations")))
	require.NoError(t, repository.CheckDatabaseReady(storage))

	return storage
}

func createAccount(t *testing.T, s *repository.Storage, email string, balance int64) int64 {
	t.Helper()
	id, err := s.CreateAccount(context.Background(), models.Account{
		Email:        email,
		PasswordHash: "hash",
		TokenBalance: balance,
	})
	require.NoError(t, err)
	return id
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.EmailMessage) {}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, models.GenerationJob) error { return nil }
