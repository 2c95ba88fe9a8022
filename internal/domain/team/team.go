// Package team provides the tenant aggregate. A team is the unit of billing
// and usage isolation; teams are never hard-deleted because historical usage
// must remain auditable.
package team

import (
	"fmt"
	"time"

	vo "formlens/internal/domain/team/valueobjects"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/id"
)

type TeamStatus string

const (
	StatusActive   TeamStatus = "active"
	StatusArchived TeamStatus = "archived"
)

type Team struct {
	id        uint
	sid       string
	name      *vo.Name
	status    TeamStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewTeam creates a new team
func NewTeam(name string) (*Team, error) {
	teamName, err := vo.NewName(name)
	if err != nil {
		return nil, err
	}

	sid, err := id.NewTeamID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Team{
		sid:       sid,
		name:      teamName,
		status:    StatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructTeam reconstructs a team from persistence
func ReconstructTeam(teamID uint, sid, name string, status TeamStatus, createdAt, updatedAt time.Time) (*Team, error) {
	if teamID == 0 {
		return nil, fmt.Errorf("team ID cannot be zero")
	}
	teamName, err := vo.NewName(name)
	if err != nil {
		return nil, err
	}
	if status != StatusActive && status != StatusArchived {
		return nil, fmt.Errorf("invalid team status: %s", status)
	}

	return &Team{
		id:        teamID,
		sid:       sid,
		name:      teamName,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the team ID
func (t *Team) ID() uint { return t.id }

// SID returns the Stripe-style ID
func (t *Team) SID() string { return t.sid }

// Name returns the team name
func (t *Team) Name() *vo.Name { return t.name }

// Status returns the team status
func (t *Team) Status() TeamStatus { return t.status }

// CreatedAt returns when the team was created
func (t *Team) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the team was last updated
func (t *Team) UpdatedAt() time.Time { return t.updatedAt }

// SetID sets the team ID (only for persistence layer use)
func (t *Team) SetID(teamID uint) error {
	if t.id != 0 {
		return fmt.Errorf("team ID is already set")
	}
	if teamID == 0 {
		return fmt.Errorf("team ID cannot be zero")
	}
	t.id = teamID
	return nil
}

// Archive soft-retires the team. Usage history stays intact.
func (t *Team) Archive() {
	if t.status == StatusArchived {
		return
	}
	t.status = StatusArchived
	t.updatedAt = biztime.NowUTC()
}

// Rename updates the team's display name
func (t *Team) Rename(name string) error {
	teamName, err := vo.NewName(name)
	if err != nil {
		return err
	}
	t.name = teamName
	t.updatedAt = biztime.NowUTC()
	return nil
}
