package dto

import (
	"time"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/shared/biztime"
)

type SubscriptionDTO struct {
	ID                    uint              `json:"id"`
	SID                   string            `json:"sid"`
	CustomerID            uint              `json:"customer_id"`
	Status                string            `json:"status"`
	BillingPeriod         string            `json:"billing_period"`
	BillingInterval       int               `json:"billing_interval"`
	TrialPeriod           string            `json:"trial_period,omitempty"`
	TrialLength           int               `json:"trial_length,omitempty"`
	RequiresManualRenewal bool              `json:"requires_manual_renewal"`
	PaymentMethod         string            `json:"payment_method,omitempty"`
	SuspensionCount       int               `json:"suspension_count"`
	Dates                 map[string]string `json:"dates"`
	NotificationsSyncedAt *time.Time        `json:"notifications_synced_at,omitempty"`
	Version               int               `json:"version"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// ToSubscriptionDTO renders every date slot in MySQL format, "0" when empty.
func ToSubscriptionDTO(sub *subscription.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}

	dates := make(map[string]string, len(vo.AllDateTypes))
	for _, dt := range vo.AllDateTypes {
		dates[string(dt)] = biztime.FormatMySQL(sub.Date(dt))
	}

	return &SubscriptionDTO{
		ID:                    sub.ID(),
		SID:                   sub.SID(),
		CustomerID:            sub.CustomerID(),
		Status:                string(sub.Status()),
		BillingPeriod:         string(sub.BillingPeriod()),
		BillingInterval:       sub.BillingInterval(),
		TrialPeriod:           string(sub.TrialPeriod()),
		TrialLength:           sub.TrialLength(),
		RequiresManualRenewal: sub.RequiresManualRenewal(),
		PaymentMethod:         sub.PaymentMethod(),
		SuspensionCount:       sub.SuspensionCount(),
		Dates:                 dates,
		NotificationsSyncedAt: sub.NotificationsSyncedAt(),
		Version:               sub.Version(),
		CreatedAt:             sub.CreatedAt(),
		UpdatedAt:             sub.UpdatedAt(),
	}
}
