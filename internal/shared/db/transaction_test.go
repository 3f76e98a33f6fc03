package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tx.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&counter{}))
	return gdb
}

func count(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&counter{}).Count(&n).Error)
	return n
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	gdb := newTestDB(t)
	tm := NewTransactionManager(gdb)

	boom := errors.New("boom")
	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, GetTxFromContext(ctx, gdb).Create(&counter{Value: 1}).Error)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, count(t, gdb))
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	gdb := newTestDB(t)
	tm := NewTransactionManager(gdb)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		outer := GetTxFromContext(ctx, gdb)
		return tm.RunInTransaction(ctx, func(inner context.Context) error {
			assert.Same(t, outer, GetTxFromContext(inner, gdb))
			return GetTxFromContext(inner, gdb).Create(&counter{Value: 2}).Error
		})
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, count(t, gdb))
}
