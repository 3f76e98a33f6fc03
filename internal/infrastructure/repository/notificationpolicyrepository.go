package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/notification"
	vo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/setting"
	"github.com/orris-inc/subsync/internal/shared/constants"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// Setting keys of the notification category.
const (
	policyKeyEnabled           = "enabled"
	policyKeyOffsetAmount      = "offset_amount"
	policyKeyOffsetUnit        = "offset_unit"
	policyKeyManualRenewalMode = "manual_renewal_mode"
	policyKeyLastChangedAt     = "last_changed_at"

	policyUpdatedBy = "subsync"
)

// NotificationPolicyRepository stores the notification policy as settings of
// the notification category.
type NotificationPolicyRepository struct {
	settings setting.Repository
	txMgr    *db.TransactionManager
	logger   logger.Interface
}

func NewNotificationPolicyRepository(settings setting.Repository, txMgr *db.TransactionManager, logger logger.Interface) *NotificationPolicyRepository {
	return &NotificationPolicyRepository{
		settings: settings,
		txMgr:    txMgr,
		logger:   logger,
	}
}

// Get returns nil when no policy setting has been stored. The result is not
// validated.
func (r *NotificationPolicyRepository) Get(ctx context.Context) (*notification.Policy, error) {
	list, err := r.settings.GetByCategory(ctx, constants.SettingCategoryNotification)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	byKey := make(map[string]*setting.SystemSetting, len(list))
	for _, s := range list {
		byKey[s.Key()] = s
	}

	policy := notification.Policy{}
	if s, ok := byKey[policyKeyEnabled]; ok {
		if policy.Enabled, err = s.GetBoolValue(); err != nil {
			return nil, fmt.Errorf("invalid %s setting: %w", policyKeyEnabled, err)
		}
	}
	if s, ok := byKey[policyKeyOffsetAmount]; ok {
		if policy.Offset.Amount, err = s.GetIntValue(); err != nil {
			return nil, fmt.Errorf("invalid %s setting: %w", policyKeyOffsetAmount, err)
		}
	}
	if s, ok := byKey[policyKeyOffsetUnit]; ok {
		policy.Offset.Unit = vo.OffsetUnit(s.GetStringValue())
	}
	if s, ok := byKey[policyKeyManualRenewalMode]; ok {
		policy.ManualRenewalMode = vo.ManualRenewalMode(s.GetStringValue())
	}
	if s, ok := byKey[policyKeyLastChangedAt]; ok {
		if policy.LastChangedAt, err = s.GetTimeValue(); err != nil {
			return nil, fmt.Errorf("invalid %s setting: %w", policyKeyLastChangedAt, err)
		}
	}

	return &policy, nil
}

// Save writes every policy setting in one transaction.
func (r *NotificationPolicyRepository) Save(ctx context.Context, policy notification.Policy) error {
	now := time.Now().UTC()

	return r.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		writes := []struct {
			key         string
			valueType   setting.ValueType
			description string
			apply       func(s *setting.SystemSetting) error
		}{
			{policyKeyEnabled, setting.ValueTypeBool, "Schedule customer notifications", func(s *setting.SystemSetting) error {
				return s.SetBoolValue(policy.Enabled, policyUpdatedBy, now)
			}},
			{policyKeyOffsetAmount, setting.ValueTypeInt, "Notification offset amount", func(s *setting.SystemSetting) error {
				return s.SetIntValue(policy.Offset.Amount, policyUpdatedBy, now)
			}},
			{policyKeyOffsetUnit, setting.ValueTypeString, "Notification offset unit", func(s *setting.SystemSetting) error {
				return s.SetStringValue(string(policy.Offset.Unit), policyUpdatedBy, now)
			}},
			{policyKeyManualRenewalMode, setting.ValueTypeString, "Renewal notices for manual renewals", func(s *setting.SystemSetting) error {
				return s.SetStringValue(string(policy.ManualRenewalMode), policyUpdatedBy, now)
			}},
			{policyKeyLastChangedAt, setting.ValueTypeTime, "Last change of the notification policy", func(s *setting.SystemSetting) error {
				return s.SetTimeValue(policy.LastChangedAt, policyUpdatedBy, now)
			}},
		}

		for _, w := range writes {
			s, err := r.settings.GetByKey(ctx, constants.SettingCategoryNotification, w.key)
			if errors.Is(err, setting.ErrSettingNotFound) {
				s, err = setting.NewSystemSetting(constants.SettingCategoryNotification, w.key, w.valueType, w.description, now)
			}
			if err != nil {
				return fmt.Errorf("failed to load setting %s: %w", w.key, err)
			}
			if err := w.apply(s); err != nil {
				return fmt.Errorf("failed to set %s: %w", w.key, err)
			}
			if err := r.settings.Upsert(ctx, s); err != nil {
				return err
			}
		}

		r.logger.Infow("notification policy saved",
			"enabled", policy.Enabled,
			"offset", policy.Offset.String(),
			"manual_renewal_mode", policy.ManualRenewalMode,
		)
		return nil
	})
}
