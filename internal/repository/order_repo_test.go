package repository

import (
	"context"
	"fmt"
	"testing"

	"salespro/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Reconcile(db))
	return db
}

func TestNextSequencePerDay(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.NextSequence(ctx, "2026-08-28")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A new day restarts at one without touching the other counter.
	got, err := repo.NextSequence(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = repo.NextSequence(ctx, "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestPeekSequence(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	got, err := repo.PeekSequence(ctx, "2026-08-28")
	require.NoError(t, err)
	assert.Zero(t, got, "an untouched day reads as zero")

	_, err = repo.NextSequence(ctx, "2026-08-28")
	require.NoError(t, err)

	got, err = repo.PeekSequence(ctx, "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
