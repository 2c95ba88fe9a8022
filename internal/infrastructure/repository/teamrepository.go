package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"formlens/internal/domain/team"
	"formlens/internal/infrastructure/persistence/models"
	"formlens/internal/shared/logger"
)

type TeamRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewTeamRepository(db *gorm.DB, logger logger.Interface) team.TeamRepository {
	return &TeamRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *TeamRepositoryImpl) Create(ctx context.Context, teamEntity *team.Team) error {
	model := r.toModel(teamEntity)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create team in database", "error", err)
		return fmt.Errorf("failed to create team: %w", err)
	}

	if err := teamEntity.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set team ID", "error", err)
		return fmt.Errorf("failed to set team ID: %w", err)
	}

	r.logger.Infow("team created successfully", "id", model.ID, "name", model.Name)
	return nil
}

func (r *TeamRepositoryImpl) GetByID(ctx context.Context, id uint) (*team.Team, error) {
	var model models.TeamModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, team.ErrTeamNotFound
		}
		r.logger.Errorw("failed to get team by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return r.toEntity(&model)
}

func (r *TeamRepositoryImpl) GetBySID(ctx context.Context, sid string) (*team.Team, error) {
	var model models.TeamModel

	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, team.ErrTeamNotFound
		}
		r.logger.Errorw("failed to get team by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return r.toEntity(&model)
}

func (r *TeamRepositoryImpl) Update(ctx context.Context, teamEntity *team.Team) error {
	model := r.toModel(teamEntity)

	result := r.db.WithContext(ctx).Model(&models.TeamModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":       model.Name,
			"status":     model.Status,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update team", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update team: %w", result.Error)
	}

	r.logger.Infow("team updated successfully", "id", model.ID)
	return nil
}

func (r *TeamRepositoryImpl) toEntity(model *models.TeamModel) (*team.Team, error) {
	if model == nil {
		return nil, nil
	}
	return team.ReconstructTeam(
		model.ID,
		model.SID,
		model.Name,
		team.TeamStatus(model.Status),
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (r *TeamRepositoryImpl) toModel(teamEntity *team.Team) *models.TeamModel {
	return &models.TeamModel{
		ID:        teamEntity.ID(),
		SID:       teamEntity.SID(),
		Name:      teamEntity.Name().String(),
		Status:    string(teamEntity.Status()),
		CreatedAt: teamEntity.CreatedAt(),
		UpdatedAt: teamEntity.UpdatedAt(),
	}
}
