package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create creates a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByID finds an account by ID within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForUpdate finds an account and takes a row-level lock on it
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	query := r.db.WithContext(ctx)
	// SQLite has no row locks; its single writer serializes calls anyway
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account ledger.Account
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByCode finds an account by its code within a tenant
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByCategories finds all accounts in the given categories within a tenant
func (r *GormAccountRepository) FindByCategories(ctx context.Context, tenantID uuid.UUID, categories ...ledger.AccountCategory) ([]*ledger.Account, error) {
	var accounts []*ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND category IN ?", tenantID, categories).
		Order("code ASC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save updates an account with an optimistic version check. A concurrent
// writer that already bumped the version surfaces as ErrConcurrencyConflict
// so the whole posting call can be retried from scratch.
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.Account{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"name":       account.Name,
			"parent_id":  account.ParentID,
			"current_dr": account.CurrentDr,
			"current_cr": account.CurrentCr,
			"opening_dr": account.OpeningDr,
			"opening_cr": account.OpeningCr,
			"updated_at": time.Now(),
			"version":    account.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	account.IncrementVersion()
	return nil
}

// Ensure GormAccountRepository implements ledger.AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
