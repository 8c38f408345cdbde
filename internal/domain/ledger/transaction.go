package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction tags one leg as a debit or a credit
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == Debit || d == Credit
}

// String returns the string representation
func (d Direction) String() string {
	return string(d)
}

// Leg is one requested posting: a direction, a target account and an amount.
// It is the input to Synchronize; Transaction is the persisted result.
type Leg struct {
	Direction Direction
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// DebitLeg builds a debit leg
func DebitLeg(accountID uuid.UUID, amount decimal.Decimal) Leg {
	return Leg{Direction: Debit, AccountID: accountID, Amount: amount}
}

// CreditLeg builds a credit leg
func CreditLeg(accountID uuid.UUID, amount decimal.Decimal) Leg {
	return Leg{Direction: Credit, AccountID: accountID, Amount: amount}
}

// Validate checks the leg before any write happens
func (l Leg) Validate() error {
	if l.AccountID == uuid.Nil {
		return NewValidationError("MISSING_ACCOUNT", "Posting leg has no account")
	}
	if !l.Direction.IsValid() {
		return NewValidationError("INVALID_DIRECTION", "Posting leg direction must be DEBIT or CREDIT")
	}
	if l.Amount.IsNegative() {
		return NewValidationError("NEGATIVE_AMOUNT", "Posting leg amount cannot be negative")
	}
	return nil
}

// Transaction is one persisted leg of a JournalEntry.
//
// Exactly one of DrAmount/CrAmount is set. CurrentDr/CurrentCr hold the
// account's cumulative running balance as of this leg's position in the
// account's (entry date, leg id) ordering - a materialized point-in-time
// snapshot, not the leg's own amount.
//
// The primary key is a serial so that ordering by (entry date, id) reflects
// insertion order within a day. Rows are written only by the Synchronizer and
// the ClosingEngine.
type Transaction struct {
	ID             int64            `gorm:"primaryKey;autoIncrement"`
	TenantID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	JournalEntryID uuid.UUID        `gorm:"type:uuid;not null;index:idx_transactions_entry_account,priority:1"`
	AccountID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_transactions_entry_account,priority:2;index"`
	DrAmount       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CrAmount       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CurrentDr      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	CurrentCr      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	CreatedAt      time.Time        `gorm:"not null"`
	UpdatedAt      time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a leg for an entry with the amount on the given side
func NewTransaction(tenantID, entryID, accountID uuid.UUID, direction Direction, amount decimal.Decimal) *Transaction {
	t := &Transaction{
		TenantID:       tenantID,
		JournalEntryID: entryID,
		AccountID:      accountID,
		CurrentDr:      decimal.Zero,
		CurrentCr:      decimal.Zero,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	t.SetAmount(direction, amount)
	return t
}

// SetAmount places amount on the side given by direction and clears the other.
// The two columns stay mutually exclusive even when an edit flips direction.
func (t *Transaction) SetAmount(direction Direction, amount decimal.Decimal) {
	if direction == Debit {
		t.DrAmount = &amount
		t.CrAmount = nil
	} else {
		t.CrAmount = &amount
		t.DrAmount = nil
	}
	t.UpdatedAt = time.Now()
}

// Direction returns the side this leg posts to
func (t *Transaction) Direction() Direction {
	if t.DrAmount != nil {
		return Debit
	}
	return Credit
}

// Amount returns the leg's own amount regardless of side
func (t *Transaction) Amount() decimal.Decimal {
	if t.DrAmount != nil {
		return *t.DrAmount
	}
	if t.CrAmount != nil {
		return *t.CrAmount
	}
	return decimal.Zero
}

// DebitAmount returns the debit amount, zero when this is a credit leg
func (t *Transaction) DebitAmount() decimal.Decimal {
	if t.DrAmount == nil {
		return decimal.Zero
	}
	return *t.DrAmount
}

// CreditAmount returns the credit amount, zero when this is a debit leg
func (t *Transaction) CreditAmount() decimal.Decimal {
	if t.CrAmount == nil {
		return decimal.Zero
	}
	return *t.CrAmount
}

// ApplySnapshotDelta shifts the leg's cached running balance
func (t *Transaction) ApplySnapshotDelta(drDelta, crDelta decimal.Decimal) {
	t.CurrentDr = t.CurrentDr.Add(drDelta)
	t.CurrentCr = t.CurrentCr.Add(crDelta)
	t.UpdatedAt = time.Now()
}
