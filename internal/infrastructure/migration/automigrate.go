package migration

import (
	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SubscriptionModel{},
		&models.SubscriptionOrderModel{},
		&models.ScheduledTaskModel{},
		&models.SystemSettingModel{},
		&models.CustomerRoleModel{},
	}
}
