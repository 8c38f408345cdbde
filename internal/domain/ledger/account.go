package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCategory classifies a node in the chart of accounts
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "ASSET"
	CategoryLiability AccountCategory = "LIABILITY"
	CategoryIncome    AccountCategory = "INCOME"
	CategoryExpense   AccountCategory = "EXPENSE"
	CategoryEquity    AccountCategory = "EQUITY"
)

// IsValid checks if the category is a valid AccountCategory
func (c AccountCategory) IsValid() bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryIncome, CategoryExpense, CategoryEquity:
		return true
	}
	return false
}

// String returns the string representation
func (c AccountCategory) String() string {
	return string(c)
}

// IsNominal returns true for categories that are zeroed at period end
// (income and expense roll into profit and loss; the rest carry forward).
func (c AccountCategory) IsNominal() bool {
	return c == CategoryIncome || c == CategoryExpense
}

// Account represents one node in the chart of accounts.
//
// CurrentDr and CurrentCr are denormalized cumulative debit/credit totals as of
// the latest posted date. They are materialized, transactionally maintained
// derived values: only the Synchronizer and the ClosingEngine may write them,
// never report code.
type Account struct {
	shared.BaseAggregateRoot
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_accounts_tenant_code,priority:1"`
	Code      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_accounts_tenant_code,priority:2"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Category  AccountCategory `gorm:"type:varchar(20);not null;index"`
	ParentID  *uuid.UUID      `gorm:"type:uuid;index"` // optional sub-account parent
	CurrentDr decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentCr decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OpeningDr decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OpeningCr decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new account in the chart of accounts
func NewAccount(tenantID uuid.UUID, code, name string, category AccountCategory) (*Account, error) {
	if code == "" {
		return nil, NewValidationError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if name == "" {
		return nil, NewValidationError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if !category.IsValid() {
		return nil, NewValidationError("INVALID_ACCOUNT_CATEGORY", "Account category is not valid")
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Code:              code,
		Name:              name,
		Category:          category,
		CurrentDr:         decimal.Zero,
		CurrentCr:         decimal.Zero,
		OpeningDr:         decimal.Zero,
		OpeningCr:         decimal.Zero,
	}, nil
}

// SetParent marks this account as a sub-account of parent
func (a *Account) SetParent(parentID uuid.UUID) {
	a.ParentID = &parentID
}

// Balance returns the current total balance: CurrentDr - CurrentCr
func (a *Account) Balance() decimal.Decimal {
	return a.CurrentDr.Sub(a.CurrentCr)
}

// ApplyDelta adds drDelta/crDelta to the cumulative totals.
// Deltas may be negative (amount reduced on edit, or cancellation).
func (a *Account) ApplyDelta(drDelta, crDelta decimal.Decimal) {
	a.CurrentDr = a.CurrentDr.Add(drDelta)
	a.CurrentCr = a.CurrentCr.Add(crDelta)
	a.UpdatedAt = time.Now()
}

// SetOpeningBalance records the account's opening totals
func (a *Account) SetOpeningBalance(dr, cr decimal.Decimal) error {
	if dr.IsNegative() || cr.IsNegative() {
		return NewValidationError("INVALID_OPENING_BALANCE", "Opening balances cannot be negative")
	}
	a.OpeningDr = dr
	a.OpeningCr = cr
	a.UpdatedAt = time.Now()
	return nil
}
