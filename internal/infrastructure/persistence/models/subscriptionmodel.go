package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/subsync/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID                    uint       `gorm:"primarykey"`
	SID                   string     `gorm:"column:sid;uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	CustomerID            uint       `gorm:"not null;index:idx_customer_subscription"`
	Status                string     `gorm:"not null;size:20;index:idx_status"`
	BillingPeriod         string     `gorm:"not null;size:10"`
	BillingInterval       int        `gorm:"not null;default:1"`
	TrialPeriod           string     `gorm:"size:10"`
	TrialLength           int        `gorm:"not null;default:0"`
	RequiresManualRenewal bool       `gorm:"not null;default:false"`
	PaymentMethod         string     `gorm:"size:64"`
	SuspensionCount       int        `gorm:"not null;default:0"`
	DateCreated           *time.Time `gorm:"column:date_created"`
	StartDate             *time.Time `gorm:"column:start_date"`
	TrialEnd              *time.Time `gorm:"column:trial_end"`
	NextPayment           *time.Time `gorm:"column:next_payment;index:idx_next_payment"`
	LastOrderCreated      *time.Time `gorm:"column:last_order_created"`
	EndDate               *time.Time `gorm:"column:end_date;index:idx_end_date"`
	NotificationsSyncedAt *time.Time `gorm:"index:idx_notifications_synced;comment:reconciliation marker"`
	Version               int        `gorm:"not null;default:1"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
