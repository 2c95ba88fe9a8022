package usecases

import (
	"context"
	"fmt"

	"formlens/internal/domain/team"
	apperrors "formlens/internal/shared/errors"
	"formlens/internal/shared/logger"
)

// CreateTeamCommand carries the input for team creation.
type CreateTeamCommand struct {
	Name string
}

// TeamDTO is the API representation of a team.
type TeamDTO struct {
	SID       string `json:"sid"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CreateTeamUseCase creates a new team. Fresh teams have no subscription and
// run on free-tier limits until one is activated.
type CreateTeamUseCase struct {
	teamRepo team.TeamRepository
	logger   logger.Interface
}

// NewCreateTeamUseCase creates a new CreateTeamUseCase
func NewCreateTeamUseCase(teamRepo team.TeamRepository, logger logger.Interface) *CreateTeamUseCase {
	return &CreateTeamUseCase{teamRepo: teamRepo, logger: logger}
}

// Execute creates the team.
func (uc *CreateTeamUseCase) Execute(ctx context.Context, cmd CreateTeamCommand) (*TeamDTO, error) {
	newTeam, err := team.NewTeam(cmd.Name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.teamRepo.Create(ctx, newTeam); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	uc.logger.Infow("team created", "team_sid", newTeam.SID(), "name", newTeam.Name().String())

	return toTeamDTO(newTeam), nil
}
