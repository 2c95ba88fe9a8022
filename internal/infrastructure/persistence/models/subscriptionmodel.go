package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionModel represents the database persistence model for subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID                 uint      `gorm:"primarykey"`
	SID                string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	TeamID             uint      `gorm:"not null;index:idx_team_subscription"`
	PlanID             uint      `gorm:"not null;index:idx_plan_subscription"`
	Status             string    `gorm:"not null;size:20;index:idx_subscription_status"`
	BillingInterval    string    `gorm:"not null;size:10"`
	ExternalID         string    `gorm:"uniqueIndex;not null;size:100;comment:billing provider subscription id"`
	AnchorAt           time.Time `gorm:"not null"`
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null;index:idx_period_end"`
	CancelAtPeriodEnd  bool      `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	CancelReason       *string `gorm:"size:500"`
	TrialStart         *time.Time
	TrialEnd           *time.Time
	LastEventMarker    uint64 `gorm:"not null;default:0;comment:replay protection marker"`
	Metadata           datatypes.JSON
	Version            int `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
