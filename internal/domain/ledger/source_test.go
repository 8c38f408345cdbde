package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRef_Validate(t *testing.T) {
	t.Run("valid reference", func(t *testing.T) {
		ref := NewSourceRef("SALES_ORDER", "42")
		assert.NoError(t, ref.Validate())
		assert.Equal(t, "SALES_ORDER:42", ref.String())
	})

	t.Run("rejects empty kind", func(t *testing.T) {
		err := SourceRef{ID: "42"}.Validate()
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "MISSING_SOURCE_KIND", verr.Code)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		err := SourceRef{Kind: "SALES_ORDER"}.Validate()
		require.Error(t, err)
	})
}

func TestSourceRegistry_DisplayNumber(t *testing.T) {
	registry := NewSourceRegistry()
	ctx := context.Background()

	t.Run("falls back to raw reference when unregistered", func(t *testing.T) {
		number, err := registry.DisplayNumber(ctx, NewSourceRef("INVOICE", "7"))
		require.NoError(t, err)
		assert.Equal(t, "INVOICE:7", number)
	})

	t.Run("uses the registered resolver", func(t *testing.T) {
		registry.Register("INVOICE", func(ctx context.Context, id string) (string, error) {
			return "INV-2026-0000" + id, nil
		})
		number, err := registry.DisplayNumber(ctx, NewSourceRef("INVOICE", "7"))
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-00007", number)
	})
}
