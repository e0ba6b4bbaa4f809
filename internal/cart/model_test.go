package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_MergesSameProductAndVariant(t *testing.T) {
	c := &Cart{ID: "c1"}

	require.NoError(t, c.Add(Item{ProductID: "p1", Variant: "L", Quantity: 1, UnitPriceSnapshot: 5000}))
	require.NoError(t, c.Add(Item{ProductID: "p1", Variant: "L", Quantity: 2, UnitPriceSnapshot: 4500}))
	require.NoError(t, c.Add(Item{ProductID: "p1", Variant: "M", Quantity: 1, UnitPriceSnapshot: 4500}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, int64(4500), c.Items[0].UnitPriceSnapshot)
	assert.Equal(t, "M", c.Items[1].Variant)
	assert.Equal(t, int64(3*4500+4500), c.Subtotal())
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	c := &Cart{}

	assert.ErrorIs(t, c.Add(Item{ProductID: "p1", Quantity: 0}), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(Item{Quantity: 1}), ErrMissingProduct)
	assert.Empty(t, c.Items)
}

func TestUpdateAndRemove(t *testing.T) {
	c := &Cart{}
	require.NoError(t, c.Add(Item{ProductID: "p1", Quantity: 1}))
	require.NoError(t, c.Add(Item{ProductID: "p2", Quantity: 1}))

	require.NoError(t, c.Update("p1", "", 4))
	assert.Equal(t, 4, c.Items[0].Quantity)

	require.NoError(t, c.Remove("p1", ""))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)

	assert.ErrorIs(t, c.Update("missing", "", 1), ErrItemNotFound)
	assert.ErrorIs(t, c.Update("p2", "", -1), ErrInvalidQuantity)

	c.Clear()
	assert.Empty(t, c.Items)
}
