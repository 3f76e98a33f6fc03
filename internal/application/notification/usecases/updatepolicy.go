package usecases

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/orris-inc/subsync/internal/domain/notification"
	nvo "github.com/orris-inc/subsync/internal/domain/notification/valueobjects"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// UpdatePolicyCommand changes the notification policy. Nil fields keep their
// current value.
type UpdatePolicyCommand struct {
	Enabled           *bool
	OffsetAmount      *int    `validate:"omitempty,gte=0,lte=365"`
	OffsetUnit        *string `validate:"omitempty,oneof=day week"`
	ManualRenewalMode *string `validate:"omitempty,oneof=notify skip"`
}

type UpdatePolicyResult struct {
	Policy  notification.Policy
	Changed bool
	// CancelledTasks is set when notifications were turned off.
	CancelledTasks int
}

type UpdatePolicyUseCase struct {
	repo      notification.PolicyRepository
	policies  notification.PolicyProvider
	scheduler notification.TaskScheduler
	publisher events.EventPublisher
	clock     biztime.Clock
	validate  *validator.Validate
	logger    logger.Interface
}

func NewUpdatePolicyUseCase(
	repo notification.PolicyRepository,
	policies notification.PolicyProvider,
	scheduler notification.TaskScheduler,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *UpdatePolicyUseCase {
	return &UpdatePolicyUseCase{
		repo:      repo,
		policies:  policies,
		scheduler: scheduler,
		publisher: publisher,
		clock:     clock,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (uc *UpdatePolicyUseCase) Execute(ctx context.Context, cmd UpdatePolicyCommand) (*UpdatePolicyResult, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return nil, errors.NewValidationError("invalid notification policy", err.Error())
	}

	current, err := uc.policies.GetPolicy(ctx)
	if err != nil {
		uc.logger.Errorw("failed to get notification policy", "error", err)
		return nil, errors.NewInternalError("failed to get notification policy")
	}

	next := current
	if cmd.Enabled != nil {
		next.Enabled = *cmd.Enabled
	}
	if cmd.OffsetAmount != nil {
		next.Offset.Amount = *cmd.OffsetAmount
	}
	if cmd.OffsetUnit != nil {
		next.Offset.Unit = nvo.OffsetUnit(*cmd.OffsetUnit)
	}
	if cmd.ManualRenewalMode != nil {
		next.ManualRenewalMode = nvo.ManualRenewalMode(*cmd.ManualRenewalMode)
	}

	if next.SameSettings(current) {
		return &UpdatePolicyResult{Policy: current}, nil
	}

	now := uc.clock.Now()
	changedAt := notification.NextChangeTime(current.LastChangedAt, now)
	next, err = notification.NewPolicy(next.Enabled, next.Offset, next.ManualRenewalMode, changedAt)
	if err != nil {
		return nil, errors.WrapValidation(err)
	}

	if err := uc.repo.Save(ctx, next); err != nil {
		uc.logger.Errorw("failed to save notification policy", "error", err)
		return nil, errors.NewInternalError("failed to save notification policy")
	}

	result := &UpdatePolicyResult{Policy: next, Changed: true}
	event := &notification.PolicyChangedEvent{Previous: current, Current: next, OccurredAt: now}

	if event.Disabled() {
		cancelled, err := uc.scheduler.CancelAll(ctx, notification.TaskGroup)
		if err != nil {
			// The next reconciliation run repeats the bulk cancel.
			uc.logger.Warnw("failed to cancel pending notifications", "error", err)
		}
		result.CancelledTasks = cancelled
	}

	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warnw("failed to publish policy change", "error", err)
	}

	uc.logger.Infow("notification policy updated",
		"enabled", next.Enabled,
		"offset", next.Offset.String(),
		"manual_renewal_mode", next.ManualRenewalMode,
		"cancelled_tasks", result.CancelledTasks,
	)

	return result, nil
}

// GetPolicyUseCase returns the policy in force.
type GetPolicyUseCase struct {
	policies notification.PolicyProvider
	logger   logger.Interface
}

func NewGetPolicyUseCase(policies notification.PolicyProvider, logger logger.Interface) *GetPolicyUseCase {
	return &GetPolicyUseCase{policies: policies, logger: logger}
}

func (uc *GetPolicyUseCase) Execute(ctx context.Context) (notification.Policy, error) {
	policy, err := uc.policies.GetPolicy(ctx)
	if err != nil {
		uc.logger.Errorw("failed to get notification policy", "error", err)
		return notification.Policy{}, fmt.Errorf("failed to get notification policy: %w", err)
	}
	return policy, nil
}
