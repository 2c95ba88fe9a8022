package migration

import (
	"formlens/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.TeamModel{},
		&models.PlanModel{},
		&models.SubscriptionModel{},
		&models.UsageCounterModel{},
		&models.WebhookEventModel{},
	}
}
