package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizer_Validate(t *testing.T) {
	s := NewSynchronizer(nil, nil, nil, nil, nil)
	source := NewSourceRef("SALES_ORDER", "42")
	a := uuid.New()
	b := uuid.New()

	t.Run("accepts balanced distinct legs", func(t *testing.T) {
		err := s.validate(source, []Leg{
			DebitLeg(a, decimal.NewFromInt(100)),
			CreditLeg(b, decimal.NewFromInt(100)),
		})
		assert.NoError(t, err)
	})

	t.Run("rejects empty leg list", func(t *testing.T) {
		err := s.validate(source, nil)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "EMPTY_POSTING", verr.Code)
	})

	t.Run("rejects nil account before any write", func(t *testing.T) {
		err := s.validate(source, []Leg{DebitLeg(uuid.Nil, decimal.NewFromInt(100))})
		require.Error(t, err)
	})

	t.Run("rejects the same account on two legs", func(t *testing.T) {
		err := s.validate(source, []Leg{
			DebitLeg(a, decimal.NewFromInt(60)),
			DebitLeg(a, decimal.NewFromInt(40)),
		})
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "DUPLICATE_ACCOUNT", verr.Code)
	})

	t.Run("rejects invalid source", func(t *testing.T) {
		err := s.validate(SourceRef{}, []Leg{DebitLeg(a, decimal.NewFromInt(1))})
		require.Error(t, err)
	})
}

func TestCheckBalanced(t *testing.T) {
	source := NewSourceRef("SALES_ORDER", "42")
	a := uuid.New()
	b := uuid.New()

	t.Run("balanced legs pass", func(t *testing.T) {
		err := checkBalanced(source, []Leg{
			DebitLeg(a, decimal.NewFromFloat(100.00)),
			CreditLeg(b, decimal.NewFromFloat(100.00)),
		})
		assert.NoError(t, err)
	})

	t.Run("sums are compared at two decimals", func(t *testing.T) {
		err := checkBalanced(source, []Leg{
			DebitLeg(a, decimal.NewFromFloat(33.333)),
			DebitLeg(a, decimal.NewFromFloat(66.667)),
			CreditLeg(b, decimal.NewFromFloat(100.00)),
		})
		assert.NoError(t, err)
	})

	t.Run("mismatch returns BalanceMismatchError", func(t *testing.T) {
		err := checkBalanced(source, []Leg{
			DebitLeg(a, decimal.NewFromFloat(100.00)),
			CreditLeg(b, decimal.NewFromFloat(90.00)),
		})
		require.Error(t, err)
		var merr *BalanceMismatchError
		require.ErrorAs(t, err, &merr)
		assert.True(t, merr.Debits.Equal(decimal.NewFromFloat(100.00)))
		assert.True(t, merr.Credits.Equal(decimal.NewFromFloat(90.00)))
	})
}
