package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/subscription"
)

// PlanDTO is the API representation of a plan.
type PlanDTO struct {
	SID       string           `json:"sid"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Tier      string           `json:"tier"`
	Price     uint64           `json:"price"`
	Currency  string           `json:"currency"`
	Limits    map[string]int64 `json:"limits"`
	TrialDays int              `json:"trial_days"`
}

// GetPublicPlansUseCase lists the plans shown on the pricing page.
type GetPublicPlansUseCase struct {
	planRepo subscription.PlanRepository
}

// NewGetPublicPlansUseCase creates a new GetPublicPlansUseCase
func NewGetPublicPlansUseCase(planRepo subscription.PlanRepository) *GetPublicPlansUseCase {
	return &GetPublicPlansUseCase{planRepo: planRepo}
}

// Execute returns public plans ordered for display.
func (uc *GetPublicPlansUseCase) Execute(ctx context.Context) ([]PlanDTO, error) {
	plans, err := uc.planRepo.GetPublicPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	dtos := make([]PlanDTO, 0, len(plans))
	for _, plan := range plans {
		limits := make(map[string]int64, len(plan.Limits()))
		for metric, limit := range plan.Limits() {
			limits[metric.String()] = limit
		}
		dtos = append(dtos, PlanDTO{
			SID:       plan.SID(),
			Name:      plan.Name(),
			Slug:      plan.Slug(),
			Tier:      string(plan.Tier()),
			Price:     plan.Price(),
			Currency:  plan.Currency(),
			Limits:    limits,
			TrialDays: plan.TrialDays(),
		})
	}
	return dtos, nil
}
