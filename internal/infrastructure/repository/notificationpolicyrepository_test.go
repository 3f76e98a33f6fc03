package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/subsync/internal/domain/notification"
	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/setting"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

func TestNotificationPolicyRepository_SaveAndGet(t *testing.T) {
	gdb := newTestDB(t)
	settings := NewSystemSettingRepository(gdb, logger.NewNopLogger())
	repo := NewNotificationPolicyRepository(settings, db.NewTransactionManager(gdb), logger.NewNopLogger())
	ctx := context.Background()

	stored, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	policy, err := notification.NewPolicy(true, vo.Offset{Amount: 2, Unit: vo.OffsetUnitWeek}, vo.ManualRenewalSkip, baseTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, policy))

	stored, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.SameSettings(policy))
	assert.True(t, baseTime.Equal(stored.LastChangedAt))

	policy.Enabled = false
	policy.Offset = vo.Offset{Amount: 4, Unit: vo.OffsetUnitDay}
	require.NoError(t, repo.Save(ctx, policy))

	stored, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
	assert.Equal(t, 4, stored.Offset.Days())

	list, err := settings.GetByCategory(ctx, constants.SettingCategoryNotification)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestNotificationPolicyRepository_InvalidStoredValue(t *testing.T) {
	gdb := newTestDB(t)
	settings := NewSystemSettingRepository(gdb, logger.NewNopLogger())
	repo := NewNotificationPolicyRepository(settings, db.NewTransactionManager(gdb), logger.NewNopLogger())
	ctx := context.Background()

	s, err := setting.NewSystemSetting(constants.SettingCategoryNotification, "offset_amount", setting.ValueTypeString, "", baseTime)
	require.NoError(t, err)
	require.NoError(t, s.SetStringValue("three", "test", baseTime))
	require.NoError(t, settings.Upsert(ctx, s))

	_, err = repo.Get(ctx)
	assert.Error(t, err)
}

func TestSystemSettingRepository_UpsertAndDelete(t *testing.T) {
	repo := NewSystemSettingRepository(newTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	s, err := setting.NewSystemSetting("misc", "greeting", setting.ValueTypeString, "", baseTime)
	require.NoError(t, err)
	require.NoError(t, s.SetStringValue("hello", "test", baseTime))
	require.NoError(t, repo.Upsert(ctx, s))
	assert.NotZero(t, s.ID())

	loaded, err := repo.GetByKey(ctx, "misc", "greeting")
	require.NoError(t, err)
	require.NoError(t, loaded.SetStringValue("bye", "test", baseTime))
	require.NoError(t, repo.Upsert(ctx, loaded))

	loaded, err = repo.GetByKey(ctx, "misc", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "bye", loaded.Value())

	require.NoError(t, repo.Delete(ctx, "misc", "greeting"))
	_, err = repo.GetByKey(ctx, "misc", "greeting")
	assert.ErrorIs(t, err, setting.ErrSettingNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "misc", "greeting"), setting.ErrSettingNotFound)
}
