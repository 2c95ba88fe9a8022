package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanModel represents the database persistence model for subscription plans
// This is the anti-corruption layer between domain and database
type PlanModel struct {
	ID        uint           `gorm:"primarykey"`
	SID       string         `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: plan_xxx"`
	Name      string         `gorm:"not null;size:100"`
	Slug      string         `gorm:"uniqueIndex;not null;size:100"`
	Tier      string         `gorm:"not null;size:20;index:idx_plan_tier"`
	Price     uint64         `gorm:"not null;default:0;comment:price in minor currency unit"`
	Currency  string         `gorm:"not null;size:3"`
	Limits    datatypes.JSON `gorm:"comment:metric limit table"`
	TrialDays int            `gorm:"not null;default:0"`
	IsPublic  bool           `gorm:"not null;default:true"`
	SortOrder int            `gorm:"not null;default:0"`
	Version   int            `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return "subscription_plans"
}

// BeforeCreate hook for GORM
func (p *PlanModel) BeforeCreate(tx *gorm.DB) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}
