package team

import (
	"context"
	"errors"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id uint) (*Team, error)
	GetBySID(ctx context.Context, sid string) (*Team, error)
	Update(ctx context.Context, team *Team) error
}
