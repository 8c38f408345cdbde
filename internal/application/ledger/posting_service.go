package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repositories provides the ledger repositories scoped to one database transaction
type Repositories interface {
	Accounts() ledger.AccountRepository
	Entries() ledger.JournalEntryRepository
	Legs() ledger.TransactionRepository
	Periods() ledger.FiscalPeriodRepository
}

// TransactionScope runs a function inside one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// PostingServiceConfig tunes the posting service
type PostingServiceConfig struct {
	// Closing designates the profit-and-loss account
	Closing ledger.ClosingConfig
	// RetryAttempts is how many times a call hit by a concurrency
	// conflict is retried from scratch
	RetryAttempts int
	// RetryDelay is the pause between attempts
	RetryDelay time.Duration
}

// PostingService is the caller-facing surface of the posting engine. It owns
// the transaction and retry boundary: each Synchronize, Cancel or ClosePeriod
// call runs inside one database transaction, and a concurrency conflict
// retries the whole call from scratch, never partway.
type PostingService struct {
	scope    TransactionScope
	registry *ledger.SourceRegistry
	cfg      PostingServiceConfig
	log      *zap.Logger
}

// NewPostingService creates a posting service
func NewPostingService(scope TransactionScope, registry *ledger.SourceRegistry, cfg PostingServiceConfig, log *zap.Logger) *PostingService {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = ledger.NewSourceRegistry()
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	return &PostingService{
		scope:    scope,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// Registry returns the source registry document modules register with
func (s *PostingService) Registry() *ledger.SourceRegistry {
	return s.registry
}

// Synchronize reflects a document's postings into the ledger (idempotent re-post)
func (s *PostingService) Synchronize(
	ctx context.Context,
	tenantID uuid.UUID,
	source ledger.SourceRef,
	date time.Time,
	legs []ledger.Leg,
	opts ledger.SyncOptions,
) (*ledger.JournalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "synchronize")
	defer span.End()
	telemetry.SetAttributes(span,
		"ledger.source", source.String(),
		"ledger.legs", len(legs),
	)

	var entry *ledger.JournalEntry
	err := s.withRetry(ctx, "synchronize", func() error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			sync := ledger.NewSynchronizer(repos.Accounts(), repos.Entries(), repos.Legs(), s.registry, s.log)
			var err error
			entry, err = sync.Synchronize(ctx, tenantID, source, date, legs, opts)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return entry, nil
}

// Cancel deletes the postings of a source and reverses their cascade
func (s *PostingService) Cancel(ctx context.Context, tenantID uuid.UUID, source ledger.SourceRef) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel")
	defer span.End()
	telemetry.SetAttributes(span, "ledger.source", source.String())

	err := s.withRetry(ctx, "cancel", func() error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			sync := ledger.NewSynchronizer(repos.Accounts(), repos.Entries(), repos.Legs(), s.registry, s.log)
			return sync.Cancel(ctx, tenantID, source)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// ClosePeriod posts the closing entry for a fiscal period
func (s *PostingService) ClosePeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*ledger.JournalEntry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "close_period")
	defer span.End()
	telemetry.SetAttributes(span, "ledger.period_id", periodID.String())

	var entry *ledger.JournalEntry
	err := s.withRetry(ctx, "close_period", func() error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			engine, err := ledger.NewClosingEngine(
				repos.Accounts(), repos.Entries(), repos.Legs(), repos.Periods(),
				s.cfg.Closing, s.log,
			)
			if err != nil {
				return err
			}
			entry, err = engine.Close(ctx, tenantID, periodID)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return entry, nil
}

// Balance returns an account's current total balance
func (s *PostingService) Balance(ctx context.Context, tenantID, accountID uuid.UUID) (balance ledger.RunningBalance, err error) {
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		account, err := repos.Accounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		balance = ledger.RunningBalance{Dr: account.CurrentDr, Cr: account.CurrentCr}
		return nil
	})
	return balance, err
}

// BalanceAsOf returns an account's running balance just before date
func (s *PostingService) BalanceAsOf(ctx context.Context, tenantID, accountID uuid.UUID, date time.Time) (balance ledger.RunningBalance, err error) {
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		sync := ledger.NewSynchronizer(repos.Accounts(), repos.Entries(), repos.Legs(), s.registry, s.log)
		balance, err = sync.BalanceAsOf(ctx, accountID, date)
		return err
	})
	return balance, err
}

// withRetry retries fn on concurrency conflicts. Validation and mismatch
// errors are terminal: retrying would not change the outcome.
func (s *PostingService) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.log.Warn("posting call hit a concurrency conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
		)
		if s.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}
	}
	return err
}
