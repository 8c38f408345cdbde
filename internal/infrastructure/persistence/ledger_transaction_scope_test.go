package persistence

import (
	"context"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestPostingService(db *gorm.DB) *appledger.PostingService {
	return appledger.NewPostingService(
		NewGormLedgerScope(db),
		ledger.NewSourceRegistry(),
		appledger.PostingServiceConfig{
			Closing: ledger.ClosingConfig{ProfitAndLossCode: "3000"},
		},
		nil,
	)
}

func TestPostingService_MismatchRollsBackEverything(t *testing.T) {
	db := setupLedgerTestDB(t)
	service := newTestPostingService(db)
	ctx := context.Background()

	tenantID := uuid.New()
	a := createTestAccount(t, db, tenantID, "1000", "Cash", ledger.CategoryAsset)
	b := createTestAccount(t, db, tenantID, "4000", "Sales", ledger.CategoryIncome)

	_, err := service.Synchronize(ctx, tenantID, ledger.NewSourceRef("SALES_ORDER", "1"), janDay(15), []ledger.Leg{
		ledger.DebitLeg(a.ID, amount("100.00")),
		ledger.CreditLeg(b.ID, amount("100.00")),
	}, ledger.DefaultSyncOptions())
	require.NoError(t, err)

	// Unbalanced posting: legs and account updates are written before the
	// final check fails, so everything must roll back together.
	badSource := ledger.NewSourceRef("SALES_ORDER", "2")
	_, err = service.Synchronize(ctx, tenantID, badSource, janDay(16), []ledger.Leg{
		ledger.DebitLeg(a.ID, amount("100.00")),
		ledger.CreditLeg(b.ID, amount("90.00")),
	}, ledger.DefaultSyncOptions())

	var merr *ledger.BalanceMismatchError
	require.ErrorAs(t, err, &merr)
	assert.True(t, merr.Debits.Equal(amount("100.00")))
	assert.True(t, merr.Credits.Equal(amount("90.00")))

	t.Run("no entry survives for the failed source", func(t *testing.T) {
		_, err := NewGormJournalEntryRepository(db).FindBySource(ctx, tenantID, badSource)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("account totals are untouched", func(t *testing.T) {
		a = reloadAccount(t, db, tenantID, a.ID)
		b = reloadAccount(t, db, tenantID, b.ID)
		assert.True(t, a.CurrentDr.Equal(amount("100.00")))
		assert.True(t, b.CurrentCr.Equal(amount("100.00")))
	})

	t.Run("a corrected re-post succeeds", func(t *testing.T) {
		_, err := service.Synchronize(ctx, tenantID, badSource, janDay(16), []ledger.Leg{
			ledger.DebitLeg(a.ID, amount("100.00")),
			ledger.CreditLeg(b.ID, amount("100.00")),
		}, ledger.DefaultSyncOptions())
		require.NoError(t, err)
		a = reloadAccount(t, db, tenantID, a.ID)
		assert.True(t, a.CurrentDr.Equal(amount("200.00")))
	})
}

func TestPostingService_EndToEnd(t *testing.T) {
	db := setupLedgerTestDB(t)
	service := newTestPostingService(db)
	ctx := context.Background()

	tenantID := uuid.New()
	cash := createTestAccount(t, db, tenantID, "1000", "Cash", ledger.CategoryAsset)
	sales := createTestAccount(t, db, tenantID, "4000", "Sales", ledger.CategoryIncome)
	createTestAccount(t, db, tenantID, "3000", "Profit and Loss", ledger.CategoryEquity)
	period := createTestPeriod(t, db, tenantID)

	source := ledger.NewSourceRef("SALES_ORDER", "1")
	_, err := service.Synchronize(ctx, tenantID, source, janDay(15), []ledger.Leg{
		ledger.DebitLeg(cash.ID, amount("100.00")),
		ledger.CreditLeg(sales.ID, amount("100.00")),
	}, ledger.DefaultSyncOptions())
	require.NoError(t, err)

	bal, err := service.Balance(ctx, tenantID, cash.ID)
	require.NoError(t, err)
	assert.True(t, bal.Dr.Equal(amount("100.00")))

	asOf, err := service.BalanceAsOf(ctx, tenantID, cash.ID, janDay(15))
	require.NoError(t, err)
	assert.True(t, asOf.Dr.IsZero(), "cutoff is exclusive")

	entry, err := service.ClosePeriod(ctx, tenantID, period.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, ledger.EntryTypeClosing, entry.EntryType)

	salesBal, err := service.Balance(ctx, tenantID, sales.ID)
	require.NoError(t, err)
	assert.True(t, salesBal.Net().IsZero())

	require.NoError(t, service.Cancel(ctx, tenantID, source))
	bal, err = service.Balance(ctx, tenantID, cash.ID)
	require.NoError(t, err)
	assert.True(t, bal.Dr.IsZero())
}
