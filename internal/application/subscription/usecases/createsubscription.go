package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/orris-inc/subsync/internal/application/subscription/dto"
	"github.com/orris-inc/subsync/internal/domain/shared/events"
	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// CreateSubscriptionCommand describes a new subscription. Zero dates are
// calculated from the billing schedule.
type CreateSubscriptionCommand struct {
	CustomerID            uint   `validate:"required"`
	BillingPeriod         string `validate:"required,oneof=day week month year"`
	BillingInterval       int    `validate:"gte=1"`
	TrialPeriod           string `validate:"omitempty,oneof=day week month year"`
	TrialLength           int    `validate:"gte=0"`
	Start                 time.Time
	TrialEnd              time.Time
	NextPayment           time.Time
	End                   time.Time
	RequiresManualRenewal bool
	PaymentMethod         string
	Paid                  bool
}

type CreateSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	publisher        events.EventPublisher
	clock            biztime.Clock
	validate         *validator.Validate
	logger           logger.Interface
}

func NewCreateSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		publisher:        publisher,
		clock:            clock,
		validate:         validator.New(),
		logger:           logger,
	}
}

func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return nil, errors.NewValidationError("invalid subscription", err.Error())
	}

	now := uc.clock.Now()
	sub, err := subscription.NewSubscription(subscription.NewSubscriptionParams{
		CustomerID:            cmd.CustomerID,
		BillingPeriod:         vo.BillingPeriod(cmd.BillingPeriod),
		BillingInterval:       cmd.BillingInterval,
		TrialPeriod:           vo.BillingPeriod(cmd.TrialPeriod),
		TrialLength:           cmd.TrialLength,
		Start:                 cmd.Start,
		TrialEnd:              cmd.TrialEnd,
		NextPayment:           cmd.NextPayment,
		End:                   cmd.End,
		RequiresManualRenewal: cmd.RequiresManualRenewal,
		PaymentMethod:         cmd.PaymentMethod,
		Paid:                  cmd.Paid,
		Now:                   now,
	})
	if err != nil {
		uc.logger.Warnw("invalid subscription", "error", err, "customer_id", cmd.CustomerID)
		return nil, toAppError(err)
	}

	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		uc.logger.Errorw("failed to create subscription", "error", err, "customer_id", cmd.CustomerID)
		return nil, errors.NewInternalError("failed to create subscription")
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger, subscription.NewSubscriptionCreatedEvent(sub, now))

	uc.logger.Infow("subscription created successfully",
		"subscription_id", sub.ID(),
		"customer_id", sub.CustomerID(),
		"status", sub.Status(),
		"next_payment", biztime.FormatMySQL(sub.Date(vo.DateNextPayment)),
	)

	return dto.ToSubscriptionDTO(sub), nil
}
