package persistence

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerScope implements appledger.TransactionScope using GORM
// transactions. Every posting call runs inside exactly one database
// transaction so that a failure anywhere rolls back the entry, its legs, the
// account totals and the cascade together.
type GormLedgerScope struct {
	db *gorm.DB
}

// NewGormLedgerScope creates a new GormLedgerScope
func NewGormLedgerScope(db *gorm.DB) *GormLedgerScope {
	return &GormLedgerScope{db: db}
}

// Execute runs fn within a database transaction. Any error rolls it back.
func (s *GormLedgerScope) Execute(ctx context.Context, fn func(repos appledger.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx})
	})
}

// gormLedgerRepositories provides the ledger repositories scoped to one transaction
type gormLedgerRepositories struct {
	tx *gorm.DB
}

// Accounts returns the account repository scoped to the current transaction
func (r *gormLedgerRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Entries returns the journal entry repository scoped to the current transaction
func (r *gormLedgerRepositories) Entries() ledger.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

// Legs returns the transaction repository scoped to the current transaction
func (r *gormLedgerRepositories) Legs() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

// Periods returns the fiscal period repository scoped to the current transaction
func (r *gormLedgerRepositories) Periods() ledger.FiscalPeriodRepository {
	return NewGormFiscalPeriodRepository(r.tx)
}

// Ensure GormLedgerScope implements appledger.TransactionScope
var _ appledger.TransactionScope = (*GormLedgerScope)(nil)

// Ensure gormLedgerRepositories implements appledger.Repositories
var _ appledger.Repositories = (*gormLedgerRepositories)(nil)
