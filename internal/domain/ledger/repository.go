package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the persistence interface for the chart of accounts
type AccountRepository interface {
	// FindByID finds an account by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByIDForUpdate finds an account and takes a row-level lock on it.
	// Synchronize and Close perform dependent reads (current balances)
	// followed by writes; the lock keeps concurrent calls on the same
	// account from interleaving.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindByCategories finds all accounts in the given categories for a tenant
	FindByCategories(ctx context.Context, tenantID uuid.UUID, categories ...AccountCategory) ([]*Account, error)

	// Save creates or updates an account with an optimistic version check;
	// a stale version surfaces as shared.ErrConcurrencyConflict
	Save(ctx context.Context, account *Account) error
}

// JournalEntryRepository defines the persistence interface for journal entries
type JournalEntryRepository interface {
	// FindBySource finds the single entry for a source reference, or
	// shared.ErrNotFound when the source has never posted
	FindBySource(ctx context.Context, tenantID uuid.UUID, source SourceRef) (*JournalEntry, error)

	// Create persists a new entry
	Create(ctx context.Context, entry *JournalEntry) error

	// Save updates an existing entry
	Save(ctx context.Context, entry *JournalEntry) error

	// Delete removes an entry (cancellation)
	Delete(ctx context.Context, entry *JournalEntry) error
}

// TransactionRepository defines the persistence interface for ledger legs.
// Only the Synchronizer and the ClosingEngine call the mutating methods.
type TransactionRepository interface {
	// FindByEntry returns all legs of an entry ordered by id
	FindByEntry(ctx context.Context, entryID uuid.UUID) ([]*Transaction, error)

	// FindByEntryAndAccount returns the existing leg an entry has on an
	// account, or shared.ErrNotFound
	FindByEntryAndAccount(ctx context.Context, entryID, accountID uuid.UUID) (*Transaction, error)

	// FindLatestBefore returns the latest leg on an account whose entry
	// date is strictly before date, ordered by (entry date, leg id), or
	// shared.ErrNotFound when the account has no earlier legs
	FindLatestBefore(ctx context.Context, accountID uuid.UUID, date time.Time) (*Transaction, error)

	// Create persists a new leg
	Create(ctx context.Context, transaction *Transaction) error

	// CreateBatch persists legs in one bulk insert (closing entries)
	CreateBatch(ctx context.Context, transactions []*Transaction) error

	// Save updates an existing leg in place
	Save(ctx context.Context, transaction *Transaction) error

	// DeleteByEntryExcept deletes every leg of an entry whose id is not in
	// keep. Used by Synchronize(clear=true) to drop removed legs.
	DeleteByEntryExcept(ctx context.Context, entryID uuid.UUID, keep []int64) error

	// DeleteByEntry deletes all legs of an entry (cancellation)
	DeleteByEntry(ctx context.Context, entryID uuid.UUID) error

	// Cascade adds drDelta/crDelta to the cached running balances of every
	// leg on the account whose entry date is strictly after cutoff, in one
	// bulk update. A previously-null cached value counts as zero. This is
	// what keeps historical running balances correct when a leg is
	// inserted or changed before already-posted later legs.
	Cascade(ctx context.Context, accountID uuid.UUID, cutoff time.Time, drDelta, crDelta decimal.Decimal) error
}

// FiscalPeriodRepository defines the persistence interface for fiscal periods
type FiscalPeriodRepository interface {
	// FindByID finds a period by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FiscalPeriod, error)

	// Save creates or updates a period with an optimistic version check
	Save(ctx context.Context, period *FiscalPeriod) error
}
