package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFiscalPeriodRepository implements ledger.FiscalPeriodRepository using GORM
type GormFiscalPeriodRepository struct {
	db *gorm.DB
}

// NewGormFiscalPeriodRepository creates a new GormFiscalPeriodRepository
func NewGormFiscalPeriodRepository(db *gorm.DB) *GormFiscalPeriodRepository {
	return &GormFiscalPeriodRepository{db: db}
}

// Create creates a new fiscal period
func (r *GormFiscalPeriodRepository) Create(ctx context.Context, period *ledger.FiscalPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

// FindByID finds a fiscal period by ID within a tenant
func (r *GormFiscalPeriodRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.FiscalPeriod, error) {
	var period ledger.FiscalPeriod
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &period, nil
}

// Save updates a fiscal period with an optimistic version check
func (r *GormFiscalPeriodRepository) Save(ctx context.Context, period *ledger.FiscalPeriod) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.FiscalPeriod{}).
		Where("id = ? AND version = ?", period.ID, period.Version-1).
		Updates(map[string]interface{}{
			"status":           period.Status,
			"closed_at":        period.ClosedAt,
			"closing_entry_id": period.ClosingEntryID,
			"updated_at":       time.Now(),
			"version":          period.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormFiscalPeriodRepository implements ledger.FiscalPeriodRepository
var _ ledger.FiscalPeriodRepository = (*GormFiscalPeriodRepository)(nil)
