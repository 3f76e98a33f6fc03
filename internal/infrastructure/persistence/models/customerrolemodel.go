package models

import (
	"time"

	"github.com/orris-inc/subsync/internal/shared/constants"
)

type CustomerRoleModel struct {
	CustomerID uint   `gorm:"primaryKey;autoIncrement:false"`
	Role       string `gorm:"not null;size:50"`
	UpdatedAt  time.Time
}

func (CustomerRoleModel) TableName() string {
	return constants.TableCustomerRoles
}
