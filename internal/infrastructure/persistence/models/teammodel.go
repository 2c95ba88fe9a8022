package models

import (
	"time"

	"gorm.io/gorm"
)

// TeamModel represents the database persistence model for teams
// This is the anti-corruption layer between domain and database
type TeamModel struct {
	ID        uint   `gorm:"primarykey"`
	SID       string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: team_xxx"`
	Name      string `gorm:"not null;size:100"`
	Status    string `gorm:"not null;size:20;default:active;index:idx_team_status"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (TeamModel) TableName() string {
	return "teams"
}
