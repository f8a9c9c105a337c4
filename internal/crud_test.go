package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-inventory-api/internal/schema"
)

func TestCoerceField(t *testing.T) {
	assets, ok := schema.ByKind("assets")
	require.True(t, ok)

	col := func(name string) schema.Column {
		c, ok := assets.Column(name)
		require.True(t, ok, name)
		return c
	}

	t.Run("text trimmed", func(t *testing.T) {
		v, err := coerceField(col("name"), "  ThinkPad  ")
		require.NoError(t, err)
		assert.Equal(t, "ThinkPad", v)
	})

	t.Run("empty text becomes nil", func(t *testing.T) {
		v, err := coerceField(col("description"), "   ")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("date parsed strictly", func(t *testing.T) {
		v, err := coerceField(col("purchase_date"), "2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), v)

		_, err = coerceField(col("purchase_date"), "03/15/2024")
		assert.Error(t, err)

		_, err = coerceField(col("purchase_date"), "2024-02-30")
		assert.Error(t, err)
	})

	t.Run("decimal rounds to two places", func(t *testing.T) {
		v, err := coerceField(col("purchase_cost"), json.Number("1499.999"))
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1500.00").Equal(v.(decimal.Decimal)))

		_, err = coerceField(col("purchase_cost"), "about $5")
		assert.Error(t, err)
	})

	t.Run("ref accepts number and numeric string", func(t *testing.T) {
		v, err := coerceField(col("vendor_id"), json.Number("7"))
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)

		v, err = coerceField(col("vendor_id"), "7")
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)

		_, err = coerceField(col("vendor_id"), "Dell")
		assert.Error(t, err)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		v, err := coerceField(col("vendor_id"), nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("enum membership enforced", func(t *testing.T) {
		types, ok := schema.ByKind("asset-types")
		require.True(t, ok)
		category, ok := types.Column("category")
		require.True(t, ok)

		v, err := coerceField(category, "Tangible")
		require.NoError(t, err)
		assert.Equal(t, "Tangible", v)

		_, err = coerceField(category, "Physical")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Tangible/Intangible")
	})
}

func TestSelectColumns(t *testing.T) {
	assets, ok := schema.ByKind("assets")
	require.True(t, ok)

	cols := selectColumns(assets)
	assert.Equal(t, "asset_id", cols[0])
	assert.Contains(t, cols, "asset_tag")
	assert.Equal(t, "updated_at", cols[len(cols)-1])

	statuses, ok := schema.ByKind("asset-statuses")
	require.True(t, ok)
	assert.Equal(t, []string{"status_id", "status_name"}, selectColumns(statuses))
}
