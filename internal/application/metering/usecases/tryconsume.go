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

// TryConsumeCommand is a request to consume metered capacity before the
// caller performs the gated action.
type TryConsumeCommand struct {
	TeamSID string
	Metric  string
	Amount  int64
}

// AdmissionResult reports the gate's decision.
type AdmissionResult struct {
	Allowed      bool   `json:"allowed"`
	Metric       string `json:"metric"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"`
	Remaining    int64  `json:"remaining"`
	PeriodEnd    string `json:"period_end"`
}

// TryConsumeUseCase is the admission gate: it resolves the team's effective
// limits and applies an atomic limit-checked increment. Any resolution or
// store failure denies admission; overage is never risked on errors.
type TryConsumeUseCase struct {
	teamRepo     team.TeamRepository
	entitlements *services.EntitlementService
	store        metering.UsageStore
	logger       logger.Interface
}

// NewTryConsumeUseCase creates a new TryConsumeUseCase
func NewTryConsumeUseCase(
	teamRepo team.TeamRepository,
	entitlements *services.EntitlementService,
	store metering.UsageStore,
	logger logger.Interface,
) *TryConsumeUseCase {
	return &TryConsumeUseCase{
		teamRepo:     teamRepo,
		entitlements: entitlements,
		store:        store,
		logger:       logger,
	}
}

// Execute attempts to consume Amount units of the metric for the team.
func (uc *TryConsumeUseCase) Execute(ctx context.Context, cmd TryConsumeCommand) (*AdmissionResult, error) {
	metric := metering.MetricType(cmd.Metric)
	if !metric.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown metric: %s", cmd.Metric))
	}
	if cmd.Amount <= 0 {
		return nil, errors.NewValidationError("amount must be positive")
	}

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
		uc.logger.Errorw("entitlement resolution failed, denying admission",
			"team_sid", cmd.TeamSID,
			"metric", metric,
			"error", err,
		)
		return nil, fmt.Errorf("failed to resolve entitlements: %w", err)
	}

	limit := resolved.Limits.LimitFor(metric)
	result, err := uc.store.Increment(ctx, teamEntity.ID(), metric, resolved.PeriodStart, resolved.PeriodEnd, cmd.Amount, limit)
	if err != nil {
		uc.logger.Errorw("usage increment failed, denying admission",
			"team_sid", cmd.TeamSID,
			"metric", metric,
			"error", err,
		)
		return nil, fmt.Errorf("failed to apply usage increment: %w", err)
	}

	remaining := int64(metering.Unlimited)
	if result.Limit != metering.Unlimited {
		remaining = result.Limit - result.NewUsage
		if remaining < 0 {
			remaining = 0
		}
	}

	return &AdmissionResult{
		Allowed:      result.Allowed,
		Metric:       metric.String(),
		CurrentUsage: result.NewUsage,
		Limit:        result.Limit,
		Remaining:    remaining,
		PeriodEnd:    biztime.FormatMetadataTime(resolved.PeriodEnd),
	}, nil
}
