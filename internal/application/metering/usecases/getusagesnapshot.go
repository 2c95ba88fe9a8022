package usecases

import (
	"context"
	"fmt"

	"formlens/internal/application/metering/services"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/team"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

// GetUsageSnapshotCommand requests the team's current usage across metrics.
type GetUsageSnapshotCommand struct {
	TeamSID string
}

// MetricUsage is one metric's usage within the current billing period.
type MetricUsage struct {
	Metric       string `json:"metric"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"`
	Remaining    int64  `json:"remaining"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
}

// UsageSnapshot is the team's full usage view.
type UsageSnapshot struct {
	TeamSID  string        `json:"team_sid"`
	PlanTier string        `json:"plan_tier,omitempty"`
	FreeTier bool          `json:"free_tier"`
	Metrics  []MetricUsage `json:"metrics"`
}

// GetUsageSnapshotUseCase builds a read-only usage report. Unlike the
// admission gate this is display data: a counter that has not been created
// yet simply reads as zero usage.
type GetUsageSnapshotUseCase struct {
	teamRepo     team.TeamRepository
	entitlements *services.EntitlementService
	store        metering.UsageStore
	logger       logger.Interface
}

// NewGetUsageSnapshotUseCase creates a new GetUsageSnapshotUseCase
func NewGetUsageSnapshotUseCase(
	teamRepo team.TeamRepository,
	entitlements *services.EntitlementService,
	store metering.UsageStore,
	logger logger.Interface,
) *GetUsageSnapshotUseCase {
	return &GetUsageSnapshotUseCase{
		teamRepo:     teamRepo,
		entitlements: entitlements,
		store:        store,
		logger:       logger,
	}
}

// Execute returns the team's usage for every known metric.
func (uc *GetUsageSnapshotUseCase) Execute(ctx context.Context, cmd GetUsageSnapshotCommand) (*UsageSnapshot, error) {
	teamEntity, err := uc.teamRepo.GetBySID(ctx, cmd.TeamSID)
	if err != nil {
		if err == team.ErrTeamNotFound {
			return nil, errors.NewNotFoundError("team not found")
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	now := biztime.NowUTC()
	resolved, err := uc.entitlements.ResolveForTeam(ctx, teamEntity.ID(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entitlements: %w", err)
	}

	snapshot := &UsageSnapshot{
		TeamSID:  cmd.TeamSID,
		PlanTier: resolved.PlanTier,
		FreeTier: resolved.FreeTier,
		Metrics:  make([]MetricUsage, 0, len(metering.AllMetricTypes())),
	}

	for _, metric := range metering.AllMetricTypes() {
		limit := resolved.Limits.LimitFor(metric)
		usage := MetricUsage{
			Metric:      metric.String(),
			Limit:       limit,
			PeriodStart: biztime.FormatMetadataTime(resolved.PeriodStart),
			PeriodEnd:   biztime.FormatMetadataTime(resolved.PeriodEnd),
		}

		stored, err := uc.store.Snapshot(ctx, teamEntity.ID(), metric)
		if err != nil {
			// Display reads fail open: the limits are still authoritative and
			// the usage column degrades to zero rather than failing the page.
			uc.logger.Warnw("usage snapshot read failed",
				"team_id", teamEntity.ID(),
				"metric", metric.String(),
				"error", err,
			)
			stored = nil
		}
		// Only a counter for the live period counts; an elapsed counter means
		// the new period simply has no usage yet.
		if stored != nil && stored.PeriodStart.Equal(resolved.PeriodStart) {
			usage.CurrentUsage = stored.CurrentUsage
		}

		if limit == metering.Unlimited {
			usage.Remaining = metering.Unlimited
		} else {
			usage.Remaining = limit - usage.CurrentUsage
			if usage.Remaining < 0 {
				usage.Remaining = 0
			}
		}

		snapshot.Metrics = append(snapshot.Metrics, usage)
	}

	return snapshot, nil
}
