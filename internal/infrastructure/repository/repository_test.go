package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/infrastructure/database"
	"github.com/orris-inc/subsync/internal/infrastructure/migration"
	"github.com/orris-inc/subsync/internal/shared/config"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// newTestDB opens a file backed sqlite database with the versioned schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "repository.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, migration.NewGooseStrategy("sqlite", logger.NewNopLogger()).Migrate(db))
	return db
}

func newActiveSubscription(t *testing.T, customerID uint) *subscription.Subscription {
	t.Helper()

	sub, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		CustomerID:      customerID,
		BillingPeriod:   vo.BillingPeriodMonth,
		BillingInterval: 1,
		Start:           baseTime,
		NextPayment:     baseTime.Add(days(20)),
		End:             baseTime.Add(days(60)),
		PaymentMethod:   "stripe",
		Paid:            true,
		Now:             baseTime,
	})
	require.NoError(t, err)
	return sub
}
