package subscription

import (
	"context"
	"time"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *Subscription) error
	// GetByID returns nil without error when the subscription does not exist.
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error

	// FindIDsPendingReconciliation returns IDs of subscriptions whose
	// notifications were never synced or were synced before the given time.
	FindIDsPendingReconciliation(ctx context.Context, syncedBefore time.Time, limit int) ([]uint, error)
	CountPendingReconciliation(ctx context.Context, syncedBefore time.Time) (int64, error)
	MarkNotificationsSynced(ctx context.Context, ids []uint, at time.Time) error
}

type OrderType string

const (
	OrderTypeParent      OrderType = "parent"
	OrderTypeRenewal     OrderType = "renewal"
	OrderTypeSwitch      OrderType = "switch"
	OrderTypeResubscribe OrderType = "resubscribe"
)

// AllOrderTypes lists every order type related to a subscription.
var AllOrderTypes = []OrderType{OrderTypeParent, OrderTypeRenewal, OrderTypeSwitch, OrderTypeResubscribe}

type PaymentOutcome string

const (
	PaymentCompleted PaymentOutcome = "completed"
	PaymentRefunded  PaymentOutcome = "refunded"
	PaymentFailed    PaymentOutcome = "failed"
)

// OrderCounter counts orders linked to a subscription.
type OrderCounter interface {
	CountOrders(ctx context.Context, subscriptionID uint, orderTypes []OrderType, outcomes []PaymentOutcome) (int, error)
}

// OrderRecorder stores an order linked to a subscription.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, subscriptionID uint, orderType OrderType, outcome PaymentOutcome, createdAt time.Time) error
}

// CapabilityResolver looks up what a payment method supports.
type CapabilityResolver interface {
	Capabilities(ctx context.Context, paymentMethod string) PaymentCapabilities
}

// CustomerRoleUpdater grants or revokes the subscriber role of a customer.
type CustomerRoleUpdater interface {
	SetRole(ctx context.Context, customerID uint, role string) error
}

const (
	RoleActiveSubscriber   = "active_subscriber"
	RoleInactiveSubscriber = "inactive_subscriber"
)
