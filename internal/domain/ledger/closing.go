package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClosingConfig designates the accounts the closing engine needs from the
// chart. It is injected at construction; the engine holds no process-global
// account table.
type ClosingConfig struct {
	// ProfitAndLossCode is the account code the period's net result is
	// posted against
	ProfitAndLossCode string
}

// Validate checks the configuration
func (c ClosingConfig) Validate() error {
	if c.ProfitAndLossCode == "" {
		return NewValidationError("MISSING_PL_CODE", "Profit and loss account code is required")
	}
	return nil
}

// ClosingEngine performs period-end closing: it zeroes every income and
// expense account into profit and loss with one write-once CLOSING entry.
//
// It reuses the Account/Transaction primitives but not the Synchronizer,
// because closing entries are never revised; legs go in as one bulk insert.
// Like Synchronize, a Close call must run inside one database transaction.
type ClosingEngine struct {
	accounts AccountRepository
	entries  JournalEntryRepository
	legs     TransactionRepository
	periods  FiscalPeriodRepository
	cfg      ClosingConfig
	log      *zap.Logger
}

// NewClosingEngine creates a closing engine
func NewClosingEngine(
	accounts AccountRepository,
	entries JournalEntryRepository,
	legs TransactionRepository,
	periods FiscalPeriodRepository,
	cfg ClosingConfig,
	log *zap.Logger,
) (*ClosingEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ClosingEngine{
		accounts: accounts,
		entries:  entries,
		legs:     legs,
		periods:  periods,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Close posts the closing entry for a fiscal period and marks it CLOSED.
// An already-closed period is rejected with ErrPeriodClosed.
func (e *ClosingEngine) Close(ctx context.Context, tenantID uuid.UUID, periodID uuid.UUID) (*JournalEntry, error) {
	period, err := e.periods.FindByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period.IsClosed() {
		return nil, ErrPeriodClosed
	}

	pl, err := e.accounts.FindByCode(ctx, tenantID, e.cfg.ProfitAndLossCode)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMissingProfitAndLossAccount
		}
		return nil, err
	}

	nominal, err := e.accounts.FindByCategories(ctx, tenantID, CategoryIncome, CategoryExpense)
	if err != nil {
		return nil, err
	}

	entry, err := NewJournalEntry(tenantID, period.SourceRef(), period.EndDate, EntryTypeClosing)
	if err != nil {
		return nil, err
	}
	entry.SourceNumber = period.Name
	if err := e.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	// Balances as of the end of the period's last day
	asOf := period.EndDate.AddDate(0, 0, 1)

	rows := make([]*Transaction, 0, len(nominal)+1)
	net := decimal.Zero // running Σdr - Σcr of the closing legs built so far
	for _, account := range nominal {
		locked, err := e.accounts.FindByIDForUpdate(ctx, tenantID, account.ID)
		if err != nil {
			return nil, err
		}
		bal, err := e.balanceAsOf(ctx, locked.ID, asOf)
		if err != nil {
			return nil, err
		}
		balance := bal.Net()
		if balance.IsZero() {
			continue
		}

		// A debit balance (expense) is zeroed by a credit leg and vice
		// versa (income, whose balance is credit-positive).
		var row *Transaction
		if balance.IsPositive() {
			row = e.buildLeg(tenantID, entry.ID, locked, bal, Credit, balance)
		} else {
			row = e.buildLeg(tenantID, entry.ID, locked, bal, Debit, balance.Neg())
		}
		net = net.Add(row.DebitAmount()).Sub(row.CreditAmount())
		rows = append(rows, row)

		locked.ApplyDelta(row.DebitAmount(), row.CreditAmount())
		if err := e.accounts.Save(ctx, locked); err != nil {
			return nil, err
		}
	}

	// Balancing leg: the period's net result lands on profit and loss
	if !net.IsZero() {
		plLocked, err := e.accounts.FindByIDForUpdate(ctx, tenantID, pl.ID)
		if err != nil {
			return nil, err
		}
		bal, err := e.balanceAsOf(ctx, plLocked.ID, asOf)
		if err != nil {
			return nil, err
		}
		var row *Transaction
		if net.IsPositive() {
			row = e.buildLeg(tenantID, entry.ID, plLocked, bal, Credit, net)
		} else {
			row = e.buildLeg(tenantID, entry.ID, plLocked, bal, Debit, net.Neg())
		}
		rows = append(rows, row)

		plLocked.ApplyDelta(row.DebitAmount(), row.CreditAmount())
		if err := e.accounts.Save(ctx, plLocked); err != nil {
			return nil, err
		}
	}

	if len(rows) > 0 {
		if err := e.legs.CreateBatch(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to insert closing legs: %w", err)
		}
		// Entries posted after the period end (the next period has
		// usually started) still need their cached balances shifted.
		for _, row := range rows {
			if err := e.legs.Cascade(ctx, row.AccountID, period.EndDate, row.DebitAmount(), row.CreditAmount()); err != nil {
				return nil, fmt.Errorf("failed to cascade closing leg: %w", err)
			}
		}
	}

	if err := period.Close(entry.ID); err != nil {
		return nil, err
	}
	if err := e.periods.Save(ctx, period); err != nil {
		return nil, err
	}

	e.log.Info("closed fiscal period",
		zap.String("period", period.String()),
		zap.Int("legs", len(rows)),
		zap.String("net", net.String()),
	)
	return entry, nil
}

// balanceAsOf mirrors Synchronizer.BalanceAsOf for the closing path
func (e *ClosingEngine) balanceAsOf(ctx context.Context, accountID uuid.UUID, date time.Time) (RunningBalance, error) {
	leg, err := e.legs.FindLatestBefore(ctx, accountID, NormalizeDate(date))
	if err != nil {
		if isNotFound(err) {
			return RunningBalance{Dr: decimal.Zero, Cr: decimal.Zero}, nil
		}
		return RunningBalance{}, err
	}
	return RunningBalance{Dr: leg.CurrentDr, Cr: leg.CurrentCr}, nil
}

// buildLeg constructs a closing leg with its running snapshot seeded from
// the account's balance as of the closing date
func (e *ClosingEngine) buildLeg(
	tenantID, entryID uuid.UUID,
	account *Account,
	seed RunningBalance,
	direction Direction,
	amount decimal.Decimal,
) *Transaction {
	row := NewTransaction(tenantID, entryID, account.ID, direction, amount)
	row.CurrentDr = seed.Dr.Add(row.DebitAmount())
	row.CurrentCr = seed.Cr.Add(row.CreditAmount())
	return row
}
