package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByEntry returns all legs of an entry ordered by id
func (r *GormTransactionRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]*ledger.Transaction, error) {
	var rows []*ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("journal_entry_id = ?", entryID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByEntryAndAccount returns the leg an entry has on an account
func (r *GormTransactionRepository) FindByEntryAndAccount(ctx context.Context, entryID, accountID uuid.UUID) (*ledger.Transaction, error) {
	var row ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("journal_entry_id = ? AND account_id = ?", entryID, accountID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindLatestBefore returns the latest leg on an account dated strictly
// before date, in (entry date, leg id) order
func (r *GormTransactionRepository) FindLatestBefore(ctx context.Context, accountID uuid.UUID, date time.Time) (*ledger.Transaction, error) {
	var row ledger.Transaction
	if err := r.db.WithContext(ctx).
		Model(&ledger.Transaction{}).
		Select("transactions.*").
		Joins("JOIN journal_entries ON journal_entries.id = transactions.journal_entry_id").
		Where("transactions.account_id = ? AND journal_entries.date < ?", accountID, date).
		Order("journal_entries.date DESC, transactions.id DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Create persists a new leg
func (r *GormTransactionRepository) Create(ctx context.Context, transaction *ledger.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

// CreateBatch persists legs in one bulk insert
func (r *GormTransactionRepository) CreateBatch(ctx context.Context, transactions []*ledger.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&transactions).Error
}

// Save updates an existing leg in place
func (r *GormTransactionRepository) Save(ctx context.Context, transaction *ledger.Transaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}

// DeleteByEntryExcept deletes every leg of an entry whose id is not in keep
func (r *GormTransactionRepository) DeleteByEntryExcept(ctx context.Context, entryID uuid.UUID, keep []int64) error {
	query := r.db.WithContext(ctx).Where("journal_entry_id = ?", entryID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	return query.Delete(&ledger.Transaction{}).Error
}

// DeleteByEntry deletes all legs of an entry
func (r *GormTransactionRepository) DeleteByEntry(ctx context.Context, entryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("journal_entry_id = ?", entryID).
		Delete(&ledger.Transaction{}).Error
}

// Cascade shifts the cached running balances of every leg on the account
// dated strictly after cutoff by drDelta/crDelta, in one bulk update.
// NULL cached values count as zero.
func (r *GormTransactionRepository) Cascade(ctx context.Context, accountID uuid.UUID, cutoff time.Time, drDelta, crDelta decimal.Decimal) error {
	later := r.db.Model(&ledger.JournalEntry{}).
		Select("id").
		Where("date > ?", cutoff)

	return r.db.WithContext(ctx).
		Model(&ledger.Transaction{}).
		Where("account_id = ?", accountID).
		Where("journal_entry_id IN (?)", later).
		Updates(map[string]interface{}{
			"current_dr": gorm.Expr("COALESCE(current_dr, 0) + ?", drDelta),
			"current_cr": gorm.Expr("COALESCE(current_cr, 0) + ?", crDelta),
			"updated_at": time.Now(),
		}).Error
}

// Ensure GormTransactionRepository implements ledger.TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
