package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/plancatalog"
	"formlens/internal/shared/logger"
)

// SyncPlanCatalogUseCase seeds the plan table from the catalog file. Existing
// slugs are left untouched so a re-run never changes live pricing.
type SyncPlanCatalogUseCase struct {
	planRepo subscription.PlanRepository
	logger   logger.Interface
}

// NewSyncPlanCatalogUseCase creates a new SyncPlanCatalogUseCase
func NewSyncPlanCatalogUseCase(planRepo subscription.PlanRepository, logger logger.Interface) *SyncPlanCatalogUseCase {
	return &SyncPlanCatalogUseCase{planRepo: planRepo, logger: logger}
}

// Execute creates any catalog plans not yet present. Returns the number of
// plans created.
func (uc *SyncPlanCatalogUseCase) Execute(ctx context.Context, catalog *plancatalog.Catalog) (int, error) {
	created := 0
	for _, entry := range catalog.Plans {
		exists, err := uc.planRepo.ExistsBySlug(ctx, entry.Slug)
		if err != nil {
			return created, fmt.Errorf("failed to check plan %s: %w", entry.Slug, err)
		}
		if exists {
			uc.logger.Debugw("plan already seeded", "slug", entry.Slug)
			continue
		}

		plan, err := entry.ToPlan()
		if err != nil {
			return created, err
		}
		if err := uc.planRepo.Create(ctx, plan); err != nil {
			// A concurrent seeder may have won the slug; treat as seeded.
			if err == subscription.ErrPlanSlugExists {
				continue
			}
			return created, fmt.Errorf("failed to create plan %s: %w", entry.Slug, err)
		}

		created++
		uc.logger.Infow("plan seeded", "slug", entry.Slug, "tier", plan.Tier())
	}
	return created, nil
}
