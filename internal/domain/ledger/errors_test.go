package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBalanceMismatchError_Error(t *testing.T) {
	err := &BalanceMismatchError{
		Source:  NewSourceRef("SALES_ORDER", "42"),
		Debits:  decimal.NewFromFloat(100.00),
		Credits: decimal.NewFromFloat(90.00),
	}
	assert.Equal(t, "unbalanced posting for SALES_ORDER:42: debits 100.00 != credits 90.00", err.Error())
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("MISSING_ACCOUNT", "Posting leg has no account")
	assert.Equal(t, "Posting leg has no account", err.Error())
	assert.Equal(t, "MISSING_ACCOUNT", err.Code)
}
