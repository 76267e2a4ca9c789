//go:build integration

package storage_test

import (
	"context"
	"os"
	"testing"

	"incluverse/backend/internal/config"
	"incluverse/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// postgresDSN starts a Postgres 16 container, or reuses TEST_PG_DSN when set.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_PG_DSN"); dsn != "" {
		return dsn
	}
	ctx := context.Background()
	pgC, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("incluverse_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestGormStore_Postgres(t *testing.T) {
	db, err := gorm.Open(pgdriver.Open(postgresDSN(t)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := storage.NewGormStore(db)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), config.DefaultStorageKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	checkCompareAndSwap(t, store)
}
