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

// GormJournalEntryRepository implements ledger.JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindBySource finds the single entry for a source reference
func (r *GormJournalEntryRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, source ledger.SourceRef) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_kind = ? AND source_id = ?", tenantID, source.Kind, source.ID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Create persists a new entry. Two concurrent first posts of the same source
// both pass FindBySource; the unique source index breaks the tie, and the
// loser surfaces as a concurrency conflict so the whole call is retried and
// finds the winner's entry.
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

// Save persists an entry mutated through MoveTo with an optimistic version
// check; MoveTo has already bumped the in-memory version
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.JournalEntry{}).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(map[string]interface{}{
			"date":       entry.Date,
			"updated_at": time.Now(),
			"version":    entry.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete removes an entry
func (r *GormJournalEntryRepository) Delete(ctx context.Context, entry *ledger.JournalEntry) error {
	return r.db.WithContext(ctx).Delete(entry).Error
}

// Ensure GormJournalEntryRepository implements ledger.JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
