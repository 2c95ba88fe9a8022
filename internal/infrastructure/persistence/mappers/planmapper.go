package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/persistence/models"
)

type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*subscription.Plan, error)
	ToModel(entity *subscription.Plan) (*models.PlanModel, error)
	ToEntities(models []*models.PlanModel) ([]*subscription.Plan, error)
}

type PlanMapperImpl struct{}

func NewPlanMapper() PlanMapper {
	return &PlanMapperImpl{}
}

func (m *PlanMapperImpl) ToEntity(model *models.PlanModel) (*subscription.Plan, error) {
	if model == nil {
		return nil, nil
	}

	var limits metering.LimitSet
	if model.Limits != nil {
		if err := json.Unmarshal(model.Limits, &limits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan limits: %w", err)
		}
	}

	entity, err := subscription.ReconstructPlan(
		model.ID,
		model.SID,
		model.Name,
		model.Slug,
		subscription.PlanTier(model.Tier),
		model.Price,
		model.Currency,
		limits,
		model.TrialDays,
		model.IsPublic,
		model.SortOrder,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan entity: %w", err)
	}

	return entity, nil
}

func (m *PlanMapperImpl) ToModel(entity *subscription.Plan) (*models.PlanModel, error) {
	if entity == nil {
		return nil, nil
	}

	limits, err := json.Marshal(entity.Limits())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan limits: %w", err)
	}

	return &models.PlanModel{
		ID:        entity.ID(),
		SID:       entity.SID(),
		Name:      entity.Name(),
		Slug:      entity.Slug(),
		Tier:      string(entity.Tier()),
		Price:     entity.Price(),
		Currency:  entity.Currency(),
		Limits:    datatypes.JSON(limits),
		TrialDays: entity.TrialDays(),
		IsPublic:  entity.IsPublic(),
		SortOrder: entity.SortOrder(),
		Version:   entity.Version(),
		CreatedAt: entity.CreatedAt(),
		UpdatedAt: entity.UpdatedAt(),
	}, nil
}

func (m *PlanMapperImpl) ToEntities(planModels []*models.PlanModel) ([]*subscription.Plan, error) {
	entities := make([]*subscription.Plan, 0, len(planModels))
	for _, model := range planModels {
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
