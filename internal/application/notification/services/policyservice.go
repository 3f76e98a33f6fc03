package services

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// PolicyService resolves the policy in force: the stored one when present,
// the configured defaults otherwise.
type PolicyService struct {
	repo     notification.PolicyRepository
	defaults notification.Policy
	logger   logger.Interface
}

func NewPolicyService(repo notification.PolicyRepository, defaults notification.Policy, logger logger.Interface) *PolicyService {
	return &PolicyService{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
	}
}

func (s *PolicyService) GetPolicy(ctx context.Context) (notification.Policy, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return notification.Policy{}, fmt.Errorf("failed to get notification policy: %w", err)
	}
	if stored == nil {
		return s.defaults, nil
	}
	if err := stored.Validate(); err != nil {
		s.logger.Warnw("stored notification policy is invalid, using defaults", "error", err)
		return s.defaults, nil
	}
	return *stored, nil
}

// Defaults returns the configured fallback policy.
func (s *PolicyService) Defaults() notification.Policy {
	return s.defaults
}

// SeedDefaults stores the configured defaults when no policy has been saved
// yet, stamping now as the change time so reconciliation picks them up.
// Once a policy is stored, configuration no longer changes it; edits go
// through the policy command. Reports whether a policy was written.
func (s *PolicyService) SeedDefaults(ctx context.Context, now time.Time) (bool, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get notification policy: %w", err)
	}
	if stored != nil {
		if !stored.SameSettings(s.defaults) {
			s.logger.Infow("stored notification policy differs from configured defaults, keeping stored policy")
		}
		return false, nil
	}

	seeded := s.defaults
	seeded.LastChangedAt = notification.NextChangeTime(time.Time{}, now)
	if err := s.repo.Save(ctx, seeded); err != nil {
		return false, fmt.Errorf("failed to seed notification policy: %w", err)
	}
	s.logger.Infow("seeded notification policy from configuration",
		"enabled", seeded.Enabled,
		"last_changed_at", seeded.LastChangedAt,
	)
	return true, nil
}
