package models

import "time"

// WebhookEventModel represents the database persistence model for processed
// billing provider webhook events. The unique index on EventID is the
// deduplication mechanism: inserting an already-seen event fails with a
// uniqueness violation which the ingestor treats as "duplicate, ignore".
type WebhookEventModel struct {
	ID             uint      `gorm:"primarykey"`
	EventID        string    `gorm:"uniqueIndex;not null;size:100;comment:provider-assigned event ID"`
	EventType      string    `gorm:"not null;size:50;index:idx_webhook_event_type"`
	SubscriptionID string    `gorm:"size:100;index:idx_webhook_subscription"`
	ProcessedAt    time.Time `gorm:"not null;index:idx_webhook_processed_at"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}
