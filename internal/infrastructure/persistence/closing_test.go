package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestClosingEngine(t *testing.T, db *gorm.DB, plCode string) *ledger.ClosingEngine {
	engine, err := ledger.NewClosingEngine(
		NewGormAccountRepository(db),
		NewGormJournalEntryRepository(db),
		NewGormTransactionRepository(db),
		NewGormFiscalPeriodRepository(db),
		ledger.ClosingConfig{ProfitAndLossCode: plCode},
		nil,
	)
	require.NoError(t, err)
	return engine
}

func createTestPeriod(t *testing.T, db *gorm.DB, tenantID uuid.UUID) *ledger.FiscalPeriod {
	period, err := ledger.NewFiscalPeriod(tenantID, "2026-Q1", janDay(1), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, NewGormFiscalPeriodRepository(db).Create(context.Background(), period))
	return period
}

func TestClosingEngine_Close(t *testing.T) {
	db := setupLedgerTestDB(t)
	sync := newTestSynchronizer(db)
	engine := newTestClosingEngine(t, db, "3000")
	ctx := context.Background()

	tenantID := uuid.New()
	cash := createTestAccount(t, db, tenantID, "1000", "Cash", ledger.CategoryAsset)
	sales := createTestAccount(t, db, tenantID, "4000", "Sales", ledger.CategoryIncome)
	rent := createTestAccount(t, db, tenantID, "5000", "Rent", ledger.CategoryExpense)
	fees := createTestAccount(t, db, tenantID, "5100", "Bank Fees", ledger.CategoryExpense)
	pl := createTestAccount(t, db, tenantID, "3000", "Profit and Loss", ledger.CategoryEquity)
	period := createTestPeriod(t, db, tenantID)

	// Trading during Q1: revenue of 100, rent of 30. Bank fees never move.
	_, err := sync.Synchronize(ctx, tenantID, ledger.NewSourceRef("SALES_ORDER", "1"), janDay(15), []ledger.Leg{
		ledger.DebitLeg(cash.ID, amount("100.00")),
		ledger.CreditLeg(sales.ID, amount("100.00")),
	}, ledger.DefaultSyncOptions())
	require.NoError(t, err)
	_, err = sync.Synchronize(ctx, tenantID, ledger.NewSourceRef("PURCHASE_ORDER", "7"), janDay(20), []ledger.Leg{
		ledger.DebitLeg(rent.ID, amount("30.00")),
		ledger.CreditLeg(cash.ID, amount("30.00")),
	}, ledger.DefaultSyncOptions())
	require.NoError(t, err)

	entry, err := engine.Close(ctx, tenantID, period.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	t.Run("closing entry carries the period's reference", func(t *testing.T) {
		assert.Equal(t, ledger.EntryTypeClosing, entry.EntryType)
		assert.Equal(t, period.SourceRef(), entry.Source())
		assert.Equal(t, "2026-Q1", entry.SourceNumber)
		assert.Equal(t, period.EndDate, entry.Date.UTC())
	})

	t.Run("nominal accounts are zeroed", func(t *testing.T) {
		sales = reloadAccount(t, db, tenantID, sales.ID)
		rent = reloadAccount(t, db, tenantID, rent.ID)
		assert.True(t, sales.Balance().IsZero(), "sales balance: %s", sales.Balance())
		assert.True(t, rent.Balance().IsZero(), "rent balance: %s", rent.Balance())
	})

	t.Run("profit lands on profit and loss as a credit", func(t *testing.T) {
		pl = reloadAccount(t, db, tenantID, pl.ID)
		assert.True(t, pl.CurrentCr.Equal(amount("70.00")), "pl credit: %s", pl.CurrentCr)
		assert.True(t, pl.CurrentDr.IsZero())
	})

	t.Run("zero-balance accounts get no leg", func(t *testing.T) {
		legs, err := NewGormTransactionRepository(db).FindByEntry(ctx, entry.ID)
		require.NoError(t, err)
		require.Len(t, legs, 3)
		for _, leg := range legs {
			assert.NotEqual(t, fees.ID, leg.AccountID)
		}
	})

	t.Run("closing legs balance", func(t *testing.T) {
		legs, err := NewGormTransactionRepository(db).FindByEntry(ctx, entry.ID)
		require.NoError(t, err)
		dr, cr := decimal.Zero, decimal.Zero
		for _, leg := range legs {
			dr = dr.Add(leg.DebitAmount())
			cr = cr.Add(leg.CreditAmount())
		}
		assert.True(t, dr.Equal(cr), "dr %s != cr %s", dr, cr)
	})

	t.Run("period is closed with the entry recorded", func(t *testing.T) {
		saved, err := NewGormFiscalPeriodRepository(db).FindByID(ctx, tenantID, period.ID)
		require.NoError(t, err)
		assert.True(t, saved.IsClosed())
		require.NotNil(t, saved.ClosingEntryID)
		assert.Equal(t, entry.ID, *saved.ClosingEntryID)
		assert.NotNil(t, saved.ClosedAt)
	})

	t.Run("closing twice is rejected", func(t *testing.T) {
		_, err := engine.Close(ctx, tenantID, period.ID)
		require.ErrorIs(t, err, ledger.ErrPeriodClosed)
	})
}

func TestClosingEngine_CascadesPastPeriodEnd(t *testing.T) {
	db := setupLedgerTestDB(t)
	sync := newTestSynchronizer(db)
	engine := newTestClosingEngine(t, db, "3000")
	ctx := context.Background()

	tenantID := uuid.New()
	cash := createTestAccount(t, db, tenantID, "1000", "Cash", ledger.CategoryAsset)
	sales := createTestAccount(t, db, tenantID, "4000", "Sales", ledger.CategoryIncome)
	createTestAccount(t, db, tenantID, "3000", "Profit and Loss", ledger.CategoryEquity)
	period := createTestPeriod(t, db, tenantID)

	// One sale inside the period and one already posted in the next period
	_, err := sync.Synchronize(ctx, tenantID, ledger.NewSourceRef("SALES_ORDER", "1"), janDay(15), []ledger.Leg{
		ledger.DebitLeg(cash.ID, amount("100.00")),
		ledger.CreditLeg(sales.ID, amount("100.00")),
	}, ledger.DefaultSyncOptions())
	require.NoError(t, err)
	aprilEntry, err := sync.Synchronize(ctx, tenantID, ledger.NewSourceRef("SALES_ORDER", "2"),
		time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), []ledger.Leg{
			ledger.DebitLeg(cash.ID, amount("20.00")),
			ledger.CreditLeg(sales.ID, amount("20.00")),
		}, ledger.DefaultSyncOptions())
	require.NoError(t, err)

	_, err = engine.Close(ctx, tenantID, period.ID)
	require.NoError(t, err)

	// The April leg sits after the closing entry in ledger order, so its
	// cached balance must include the zeroing debit of 100.
	legs, err := NewGormTransactionRepository(db).FindByEntry(ctx, aprilEntry.ID)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	salesLeg := legs[1]
	require.Equal(t, sales.ID, salesLeg.AccountID)
	assert.True(t, salesLeg.CurrentDr.Equal(amount("100.00")), "april dr snapshot: %s", salesLeg.CurrentDr)
	assert.True(t, salesLeg.CurrentCr.Equal(amount("120.00")), "april cr snapshot: %s", salesLeg.CurrentCr)

	// Only the in-period revenue was closed out
	sales = reloadAccount(t, db, tenantID, sales.ID)
	assert.True(t, sales.Balance().Equal(amount("-20.00")), "sales balance: %s", sales.Balance())
}

func TestClosingEngine_MissingProfitAndLossAccount(t *testing.T) {
	db := setupLedgerTestDB(t)
	engine := newTestClosingEngine(t, db, "9999")
	ctx := context.Background()

	tenantID := uuid.New()
	period := createTestPeriod(t, db, tenantID)

	_, err := engine.Close(ctx, tenantID, period.ID)
	require.ErrorIs(t, err, ledger.ErrMissingProfitAndLossAccount)
}

func TestClosingEngine_NoActivity(t *testing.T) {
	db := setupLedgerTestDB(t)
	engine := newTestClosingEngine(t, db, "3000")
	ctx := context.Background()

	tenantID := uuid.New()
	createTestAccount(t, db, tenantID, "3000", "Profit and Loss", ledger.CategoryEquity)
	createTestAccount(t, db, tenantID, "4000", "Sales", ledger.CategoryIncome)
	period := createTestPeriod(t, db, tenantID)

	entry, err := engine.Close(ctx, tenantID, period.ID)
	require.NoError(t, err)

	legs, err := NewGormTransactionRepository(db).FindByEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, legs, "a period with no nominal activity closes with an empty entry")

	saved, err := NewGormFiscalPeriodRepository(db).FindByID(ctx, tenantID, period.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsClosed())
}

func TestNewClosingEngine_RequiresProfitAndLossCode(t *testing.T) {
	_, err := ledger.NewClosingEngine(nil, nil, nil, nil, ledger.ClosingConfig{}, nil)
	require.Error(t, err)
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "MISSING_PL_CODE", verr.Code)
}
