package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SyncOptions controls one Synchronize call
type SyncOptions struct {
	// Clear deletes previously-posted legs not present in the supplied
	// list (removed legs on an edit)
	Clear bool
	// Check enforces that supplied debits and credits sum equal
	Check bool
	// EntryType of the resolved entry when it is created. Documents post
	// REGULAR entries; opening balances post OPENING ones.
	EntryType EntryType
}

// DefaultSyncOptions is what ordinary document posting uses
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{Clear: true, Check: true, EntryType: EntryTypeRegular}
}

// RunningBalance is an account's cumulative debit/credit pair at a point in
// its leg sequence
type RunningBalance struct {
	Dr decimal.Decimal
	Cr decimal.Decimal
}

// Net returns Dr - Cr
func (b RunningBalance) Net() decimal.Decimal {
	return b.Dr.Sub(b.Cr)
}

// Synchronizer turns a document's postings into balanced ledger legs and
// keeps every materialized running balance consistent while doing so. It is
// the single upsert/clear algorithm every document type calls, idempotent
// under re-posting and tolerant of edits that land before already-posted
// later entries.
//
// Every call must run inside one database transaction (the application layer
// owns that boundary); any error returned here rolls the whole call back.
type Synchronizer struct {
	accounts AccountRepository
	entries  JournalEntryRepository
	legs     TransactionRepository
	registry *SourceRegistry
	log      *zap.Logger
}

// NewSynchronizer creates a synchronizer over the given repositories
func NewSynchronizer(
	accounts AccountRepository,
	entries JournalEntryRepository,
	legs TransactionRepository,
	registry *SourceRegistry,
	log *zap.Logger,
) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = NewSourceRegistry()
	}
	return &Synchronizer{
		accounts: accounts,
		entries:  entries,
		legs:     legs,
		registry: registry,
		log:      log,
	}
}

// Balance returns an account's current total balance (dr - cr)
func (s *Synchronizer) Balance(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accounts.FindByID(ctx, tenantID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance(), nil
}

// BalanceAsOf returns the account's running balance as of the latest leg
// dated strictly before date, or zero if the account has no earlier legs.
// It serves reports and seeds the snapshot of newly inserted legs.
func (s *Synchronizer) BalanceAsOf(ctx context.Context, accountID uuid.UUID, date time.Time) (RunningBalance, error) {
	leg, err := s.legs.FindLatestBefore(ctx, accountID, NormalizeDate(date))
	if err != nil {
		if isNotFound(err) {
			return RunningBalance{Dr: decimal.Zero, Cr: decimal.Zero}, nil
		}
		return RunningBalance{}, err
	}
	return RunningBalance{Dr: leg.CurrentDr, Cr: leg.CurrentCr}, nil
}

// Synchronize reflects a document's current postings into the ledger.
//
// The entry for source is resolved or created, each supplied leg is created
// or updated in place, account totals and later legs' cached balances are
// adjusted by the exact delta, and (with Clear) legs the document no longer
// produces are deleted with their effect reverted. Calling it twice with the
// same legs is a no-op.
func (s *Synchronizer) Synchronize(
	ctx context.Context,
	tenantID uuid.UUID,
	source SourceRef,
	date time.Time,
	legs []Leg,
	opts SyncOptions,
) (*JournalEntry, error) {
	if err := s.validate(source, legs); err != nil {
		return nil, err
	}
	date = NormalizeDate(date)

	entry, created, err := s.resolveEntry(ctx, tenantID, source, date, opts.EntryType)
	if err != nil {
		return nil, err
	}
	// The cascade cutoff for edited legs is the date they were posted
	// under, which may differ from the new date applied below.
	postedDate := entry.Date

	touched := make([]int64, 0, len(legs))
	for _, leg := range legs {
		id, err := s.syncLeg(ctx, tenantID, entry, created, postedDate, date, leg)
		if err != nil {
			return nil, err
		}
		touched = append(touched, id)
	}

	if opts.Clear {
		if err := s.clearRemoved(ctx, tenantID, entry, touched, postedDate); err != nil {
			return nil, err
		}
	}

	if !entry.Date.Equal(date) {
		entry.MoveTo(date)
		if err := s.entries.Save(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to move journal entry: %w", err)
		}
	}

	if opts.Check {
		if err := checkBalanced(source, legs); err != nil {
			return nil, err
		}
	}

	s.log.Debug("synchronized postings",
		zap.String("source", source.String()),
		zap.Time("date", date),
		zap.Int("legs", len(legs)),
		zap.Bool("created", created),
	)
	return entry, nil
}

// Cancel deletes the journal entry for source along with its legs and
// exactly reverts their effect on account totals and later legs' cached
// balances, as if the source had never posted.
func (s *Synchronizer) Cancel(ctx context.Context, tenantID uuid.UUID, source SourceRef) error {
	if err := source.Validate(); err != nil {
		return err
	}

	entry, err := s.entries.FindBySource(ctx, tenantID, source)
	if err != nil {
		return err
	}
	legs, err := s.legs.FindByEntry(ctx, entry.ID)
	if err != nil {
		return err
	}

	for _, leg := range legs {
		account, err := s.accounts.FindByIDForUpdate(ctx, tenantID, leg.AccountID)
		if err != nil {
			return err
		}
		drDelta := leg.DebitAmount().Neg()
		crDelta := leg.CreditAmount().Neg()

		account.ApplyDelta(drDelta, crDelta)
		if err := s.accounts.Save(ctx, account); err != nil {
			return err
		}
		if err := s.legs.Cascade(ctx, account.ID, entry.Date, drDelta, crDelta); err != nil {
			return fmt.Errorf("failed to reverse cascade: %w", err)
		}
	}

	if err := s.legs.DeleteByEntry(ctx, entry.ID); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, entry); err != nil {
		return err
	}

	s.log.Info("cancelled postings",
		zap.String("source", source.String()),
		zap.Int("legs", len(legs)),
	)
	return nil
}

// validate rejects bad input before any write happens
func (s *Synchronizer) validate(source SourceRef, legs []Leg) error {
	if err := source.Validate(); err != nil {
		return err
	}
	if len(legs) == 0 {
		return NewValidationError("EMPTY_POSTING", "At least one posting leg is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(legs))
	for _, leg := range legs {
		if err := leg.Validate(); err != nil {
			return err
		}
		// Legs are matched to existing rows by account, so a second
		// occurrence of the same account would silently resolve to the
		// first row. Reject instead: callers merge their legs.
		if _, dup := seen[leg.AccountID]; dup {
			return NewValidationError("DUPLICATE_ACCOUNT", "The same account appears on more than one leg")
		}
		seen[leg.AccountID] = struct{}{}
	}
	return nil
}

// clearRemoved deletes legs the document no longer produces and reverts
// their effect on account totals and later legs' cached balances, the same
// reversal Cancel applies. The cutoff is the date the legs were posted under.
func (s *Synchronizer) clearRemoved(
	ctx context.Context,
	tenantID uuid.UUID,
	entry *JournalEntry,
	touched []int64,
	postedDate time.Time,
) error {
	existing, err := s.legs.FindByEntry(ctx, entry.ID)
	if err != nil {
		return err
	}
	keep := make(map[int64]struct{}, len(touched))
	for _, id := range touched {
		keep[id] = struct{}{}
	}

	removed := 0
	for _, leg := range existing {
		if _, ok := keep[leg.ID]; ok {
			continue
		}
		account, err := s.accounts.FindByIDForUpdate(ctx, tenantID, leg.AccountID)
		if err != nil {
			return err
		}
		drDelta := leg.DebitAmount().Neg()
		crDelta := leg.CreditAmount().Neg()

		account.ApplyDelta(drDelta, crDelta)
		if err := s.accounts.Save(ctx, account); err != nil {
			return err
		}
		if err := s.legs.Cascade(ctx, account.ID, postedDate, drDelta, crDelta); err != nil {
			return fmt.Errorf("failed to reverse removed leg: %w", err)
		}
		removed++
	}
	if removed == 0 {
		return nil
	}
	if err := s.legs.DeleteByEntryExcept(ctx, entry.ID, touched); err != nil {
		return fmt.Errorf("failed to clear removed legs: %w", err)
	}
	return nil
}

// resolveEntry finds the entry for source or creates it dated date
func (s *Synchronizer) resolveEntry(
	ctx context.Context,
	tenantID uuid.UUID,
	source SourceRef,
	date time.Time,
	entryType EntryType,
) (*JournalEntry, bool, error) {
	entry, err := s.entries.FindBySource(ctx, tenantID, source)
	if err == nil {
		return entry, false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	entry, err = NewJournalEntry(tenantID, source, date, entryType)
	if err != nil {
		return nil, false, err
	}
	number, err := s.registry.DisplayNumber(ctx, source)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve source number: %w", err)
	}
	entry.SourceNumber = number

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// syncLeg creates or updates the single leg entry has on leg.AccountID and
// propagates the resulting delta. Returns the persisted leg id.
func (s *Synchronizer) syncLeg(
	ctx context.Context,
	tenantID uuid.UUID,
	entry *JournalEntry,
	created bool,
	postedDate time.Time,
	date time.Time,
	leg Leg,
) (int64, error) {
	account, err := s.accounts.FindByIDForUpdate(ctx, tenantID, leg.AccountID)
	if err != nil {
		if isNotFound(err) {
			return 0, NewValidationError("ACCOUNT_NOT_FOUND", "Posting leg references an unknown account")
		}
		return 0, err
	}

	var existing *Transaction
	if !created {
		existing, err = s.legs.FindByEntryAndAccount(ctx, entry.ID, account.ID)
		if err != nil && !isNotFound(err) {
			return 0, err
		}
	}

	var id int64
	var drDelta, crDelta decimal.Decimal
	var cutoff time.Time

	if existing == nil {
		// New leg: seed its snapshot from the balance as of the end of
		// the posting day, then push its own amount forward.
		seed, err := s.BalanceAsOf(ctx, account.ID, date.AddDate(0, 0, 1))
		if err != nil {
			return 0, err
		}
		row := NewTransaction(tenantID, entry.ID, account.ID, leg.Direction, leg.Amount)
		drDelta = row.DebitAmount()
		crDelta = row.CreditAmount()
		row.CurrentDr = seed.Dr.Add(drDelta)
		row.CurrentCr = seed.Cr.Add(crDelta)
		if err := s.legs.Create(ctx, row); err != nil {
			return 0, err
		}
		id = row.ID
		cutoff = date
	} else {
		// Existing leg: update in place, id preserved. Debit and credit
		// deltas are independent because the direction may also flip.
		prevDr := existing.DebitAmount()
		prevCr := existing.CreditAmount()
		existing.SetAmount(leg.Direction, leg.Amount)
		drDelta = existing.DebitAmount().Sub(prevDr)
		crDelta = existing.CreditAmount().Sub(prevCr)
		existing.ApplySnapshotDelta(drDelta, crDelta)
		if err := s.legs.Save(ctx, existing); err != nil {
			return 0, err
		}
		id = existing.ID
		cutoff = postedDate
	}

	account.ApplyDelta(drDelta, crDelta)
	if err := s.accounts.Save(ctx, account); err != nil {
		return 0, err
	}
	if !drDelta.IsZero() || !crDelta.IsZero() {
		if err := s.legs.Cascade(ctx, account.ID, cutoff, drDelta, crDelta); err != nil {
			return 0, fmt.Errorf("failed to cascade balance delta: %w", err)
		}
	}
	return id, nil
}

// checkBalanced verifies that supplied debits and credits sum equal, rounded
// to two decimals. A mismatch aborts the enclosing transaction.
func checkBalanced(source SourceRef, legs []Leg) error {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, leg := range legs {
		if leg.Direction == Debit {
			debits = debits.Add(leg.Amount)
		} else {
			credits = credits.Add(leg.Amount)
		}
	}
	if !debits.Round(2).Equal(credits.Round(2)) {
		return &BalanceMismatchError{Source: source, Debits: debits, Credits: credits}
	}
	return nil
}
