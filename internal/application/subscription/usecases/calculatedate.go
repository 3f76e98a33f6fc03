package usecases

import (
	"context"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/errors"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

type CalculateDateQuery struct {
	SubscriptionID uint
	DateType       string
}

// CalculateDateUseCase derives the expected value of a date slot without
// changing the subscription.
type CalculateDateUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	orders           subscription.OrderCounter
	clock            biztime.Clock
	logger           logger.Interface
}

func NewCalculateDateUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	orders subscription.OrderCounter,
	clock biztime.Clock,
	logger logger.Interface,
) *CalculateDateUseCase {
	return &CalculateDateUseCase{
		subscriptionRepo: subscriptionRepo,
		orders:           orders,
		clock:            clock,
		logger:           logger,
	}
}

// Execute returns the calculated value in MySQL format, "0" when the slot
// would be empty.
func (uc *CalculateDateUseCase) Execute(ctx context.Context, query CalculateDateQuery) (string, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, query.SubscriptionID, uc.logger)
	if err != nil {
		return "", err
	}

	calc := subscription.DateCalculationContext{Now: uc.clock.Now()}

	// A trial only exists until the first payment is collected.
	if vo.DateType(query.DateType) == vo.DateTrialEnd {
		completed, err := uc.orders.CountOrders(ctx, sub.ID(), subscription.AllOrderTypes,
			[]subscription.PaymentOutcome{subscription.PaymentCompleted})
		if err != nil {
			uc.logger.Errorw("failed to count completed payments", "error", err, "subscription_id", sub.ID())
			return "", errors.NewInternalError("failed to count completed payments")
		}
		calc.CompletedPayments = completed
	}

	return biztime.FormatMySQL(sub.CalculateDate(query.DateType, calc)), nil
}
