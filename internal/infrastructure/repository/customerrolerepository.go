package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/subsync/internal/infrastructure/persistence/models"
	"github.com/orris-inc/subsync/internal/shared/db"
	"github.com/orris-inc/subsync/internal/shared/logger"
)

// CustomerRoleRepository keeps the subscriber role of each customer.
type CustomerRoleRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewCustomerRoleRepository(db *gorm.DB, logger logger.Interface) *CustomerRoleRepository {
	return &CustomerRoleRepository{db: db, logger: logger}
}

func (r *CustomerRoleRepository) SetRole(ctx context.Context, customerID uint, role string) error {
	model := &models.CustomerRoleModel{
		CustomerID: customerID,
		Role:       role,
		UpdatedAt:  time.Now().UTC(),
	}

	err := db.GetTxFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to set customer role", "customer_id", customerID, "role", role, "error", err)
		return fmt.Errorf("failed to set customer role: %w", err)
	}

	r.logger.Infow("customer role updated", "customer_id", customerID, "role", role)
	return nil
}

// GetRole returns the empty string when the customer has no role.
func (r *CustomerRoleRepository) GetRole(ctx context.Context, customerID uint) (string, error) {
	var model models.CustomerRoleModel
	err := db.GetTxFromContext(ctx, r.db).First(&model, "customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get customer role: %w", err)
	}
	return model.Role, nil
}
