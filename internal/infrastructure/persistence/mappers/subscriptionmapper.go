package mappers

import (
	"fmt"
	"time"

	"github.com/orris-inc/subsync/internal/domain/subscription"
	vo "github.com/orris-inc/subsync/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	dates := make(map[vo.DateType]time.Time, len(vo.AllDateTypes))
	for dateType, value := range map[vo.DateType]*time.Time{
		vo.DateCreated:          model.DateCreated,
		vo.DateStart:            model.StartDate,
		vo.DateTrialEnd:         model.TrialEnd,
		vo.DateNextPayment:      model.NextPayment,
		vo.DateLastOrderCreated: model.LastOrderCreated,
		vo.DateEnd:              model.EndDate,
	} {
		if value != nil {
			dates[dateType] = value.UTC()
		}
	}

	entity, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:                    model.ID,
		SID:                   model.SID,
		CustomerID:            model.CustomerID,
		Status:                model.Status,
		Dates:                 dates,
		BillingPeriod:         model.BillingPeriod,
		BillingInterval:       model.BillingInterval,
		TrialPeriod:           model.TrialPeriod,
		TrialLength:           model.TrialLength,
		RequiresManualRenewal: model.RequiresManualRenewal,
		PaymentMethod:         model.PaymentMethod,
		SuspensionCount:       model.SuspensionCount,
		NotificationsSyncedAt: utcPtr(model.NotificationsSyncedAt),
		Version:               model.Version,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription %d: %w", model.ID, err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}

	return &models.SubscriptionModel{
		ID:                    entity.ID(),
		SID:                   entity.SID(),
		CustomerID:            entity.CustomerID(),
		Status:                string(entity.Status()),
		BillingPeriod:         string(entity.BillingPeriod()),
		BillingInterval:       entity.BillingInterval(),
		TrialPeriod:           string(entity.TrialPeriod()),
		TrialLength:           entity.TrialLength(),
		RequiresManualRenewal: entity.RequiresManualRenewal(),
		PaymentMethod:         entity.PaymentMethod(),
		SuspensionCount:       entity.SuspensionCount(),
		DateCreated:           datePtr(entity.Date(vo.DateCreated)),
		StartDate:             datePtr(entity.Date(vo.DateStart)),
		TrialEnd:              datePtr(entity.Date(vo.DateTrialEnd)),
		NextPayment:           datePtr(entity.Date(vo.DateNextPayment)),
		LastOrderCreated:      datePtr(entity.Date(vo.DateLastOrderCreated)),
		EndDate:               datePtr(entity.Date(vo.DateEnd)),
		NotificationsSyncedAt: entity.NotificationsSyncedAt(),
		Version:               entity.Version(),
		CreatedAt:             entity.CreatedAt(),
		UpdatedAt:             entity.UpdatedAt(),
	}
}

func (m *SubscriptionMapperImpl) ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(models))
	for _, model := range models {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// datePtr stores an empty slot as NULL.
func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
