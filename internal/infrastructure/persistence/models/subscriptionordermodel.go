package models

import (
	"time"

	"github.com/orris-inc/subsync/internal/shared/constants"
)

// SubscriptionOrderModel links an order to a subscription. Only the fields
// needed to count payments are kept.
type SubscriptionOrderModel struct {
	ID             uint      `gorm:"primarykey"`
	SubscriptionID uint      `gorm:"not null;index:idx_order_subscription,priority:1"`
	OrderType      string    `gorm:"not null;size:20;index:idx_order_subscription,priority:2"`
	PaymentOutcome string    `gorm:"not null;size:20"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (SubscriptionOrderModel) TableName() string {
	return constants.TableSubscriptionOrders
}
