package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/team"
	"formlens/internal/shared/biztime"
	apperrors "formlens/internal/shared/errors"
)

// GetTeamUseCase fetches a team by its public identifier.
type GetTeamUseCase struct {
	teamRepo team.TeamRepository
}

// NewGetTeamUseCase creates a new GetTeamUseCase
func NewGetTeamUseCase(teamRepo team.TeamRepository) *GetTeamUseCase {
	return &GetTeamUseCase{teamRepo: teamRepo}
}

// Execute fetches the team.
func (uc *GetTeamUseCase) Execute(ctx context.Context, sid string) (*TeamDTO, error) {
	teamEntity, err := uc.teamRepo.GetBySID(ctx, sid)
	if err != nil {
		if err == team.ErrTeamNotFound {
			return nil, apperrors.NewNotFoundError("team not found")
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return toTeamDTO(teamEntity), nil
}

func toTeamDTO(t *team.Team) *TeamDTO {
	return &TeamDTO{
		SID:       t.SID(),
		Name:      t.Name().Display(),
		Status:    string(t.Status()),
		CreatedAt: biztime.FormatMetadataTime(t.CreatedAt()),
	}
}
