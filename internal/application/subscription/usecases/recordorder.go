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

type RecordOrderCommand struct {
	SubscriptionID uint
	// OrderType defaults to renewal.
	OrderType string `validate:"omitempty,oneof=parent renewal switch resubscribe"`
	// Outcome defaults to completed.
	Outcome string `validate:"omitempty,oneof=completed refunded failed"`
	// CreatedAt defaults to now.
	CreatedAt time.Time
}

// RecordOrderUseCase stamps the latest order on a subscription and, for a
// live subscription, moves the next payment to the following cycle.
type RecordOrderUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	orders           subscription.OrderRecorder
	txMgr            TransactionRunner
	publisher        events.EventPublisher
	clock            biztime.Clock
	logger           logger.Interface
	validate         *validator.Validate
}

func NewRecordOrderUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	orders subscription.OrderRecorder,
	txMgr TransactionRunner,
	publisher events.EventPublisher,
	clock biztime.Clock,
	logger logger.Interface,
) *RecordOrderUseCase {
	return &RecordOrderUseCase{
		subscriptionRepo: subscriptionRepo,
		orders:           orders,
		txMgr:            txMgr,
		publisher:        publisher,
		clock:            clock,
		logger:           logger,
		validate:         validator.New(),
	}
}

func (uc *RecordOrderUseCase) Execute(ctx context.Context, cmd RecordOrderCommand) (*dto.SubscriptionDTO, error) {
	if err := uc.validate.Struct(cmd); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionID, uc.logger)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	if err := sub.RecordOrderCreated(createdAt); err != nil {
		return nil, toAppError(err)
	}

	if sub.Status().IsLive() {
		next := sub.CalculateDate(string(vo.DateNextPayment), subscription.DateCalculationContext{Now: now})
		if !next.IsZero() && !next.Equal(sub.Date(vo.DateNextPayment)) {
			if err := sub.UpdateDates(map[vo.DateType]time.Time{vo.DateNextPayment: next}, now); err != nil {
				// The order is still recorded; the schedule keeps its next payment.
				uc.logger.Warnw("failed to advance next payment",
					"subscription_id", cmd.SubscriptionID,
					"error", err,
				)
			}
		}
	}

	orderType := subscription.OrderType(cmd.OrderType)
	if orderType == "" {
		orderType = subscription.OrderTypeRenewal
	}
	outcome := subscription.PaymentOutcome(cmd.Outcome)
	if outcome == "" {
		outcome = subscription.PaymentCompleted
	}

	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			uc.logger.Errorw("failed to update subscription", "error", err, "subscription_id", cmd.SubscriptionID)
			return toAppError(err)
		}
		if err := uc.orders.RecordOrder(txCtx, sub.ID(), orderType, outcome, createdAt); err != nil {
			uc.logger.Errorw("failed to store order", "error", err, "subscription_id", cmd.SubscriptionID)
			return errors.NewInternalError("failed to store order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishChanges(ctx, uc.publisher, sub, now, uc.logger)

	uc.logger.Infow("subscription order recorded",
		"subscription_id", cmd.SubscriptionID,
		"last_order_created", biztime.FormatMySQL(sub.Date(vo.DateLastOrderCreated)),
		"next_payment", biztime.FormatMySQL(sub.Date(vo.DateNextPayment)),
	)

	return dto.ToSubscriptionDTO(sub), nil
}
