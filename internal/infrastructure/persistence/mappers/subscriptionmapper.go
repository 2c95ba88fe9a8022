package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
	"formlens/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
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

	status := vo.SubscriptionStatus(model.Status)
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	var metadata map[string]interface{}
	if model.Metadata != nil {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	entity, err := subscription.ReconstructSubscription(
		model.ID,
		model.SID,
		model.TeamID,
		model.PlanID,
		status,
		metering.BillingInterval(model.BillingInterval),
		model.ExternalID,
		model.AnchorAt,
		model.CurrentPeriodStart,
		model.CurrentPeriodEnd,
		model.CancelAtPeriodEnd,
		model.CanceledAt,
		model.CancelReason,
		model.TrialStart,
		model.TrialEnd,
		model.LastEventMarker,
		metadata,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadata datatypes.JSON
	if len(entity.Metadata()) > 0 {
		data, err := json.Marshal(entity.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = data
	}

	return &models.SubscriptionModel{
		ID:                 entity.ID(),
		SID:                entity.SID(),
		TeamID:             entity.TeamID(),
		PlanID:             entity.PlanID(),
		Status:             entity.Status().String(),
		BillingInterval:    entity.BillingInterval().String(),
		ExternalID:         entity.ExternalID(),
		AnchorAt:           entity.AnchorAt(),
		CurrentPeriodStart: entity.CurrentPeriodStart(),
		CurrentPeriodEnd:   entity.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  entity.CancelAtPeriodEnd(),
		CanceledAt:         entity.CanceledAt(),
		CancelReason:       entity.CancelReason(),
		TrialStart:         entity.TrialStart(),
		TrialEnd:           entity.TrialEnd(),
		LastEventMarker:    entity.LastEventMarker(),
		Metadata:           metadata,
		Version:            entity.Version(),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}, nil
}

func (m *SubscriptionMapperImpl) ToEntities(subscriptionModels []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(subscriptionModels))
	for _, model := range subscriptionModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert model ID %d: %w", model.ID, err)
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}
