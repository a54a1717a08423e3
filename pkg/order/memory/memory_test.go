package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/order"
)

func lines() []order.NewLine {
	return []order.NewLine{
		{ProductName: "Espresso", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
		{ProductName: "Cappuccino", UnitPrice: decimal.RequireFromString("3.50"), Quantity: 1},
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New()

	o, err := repo.Create(ctx, lines())
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ID)
	require.Len(t, o.Items, 2)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
	for i, want := range lines() {
		assert.Equal(t, want.ProductName, got.Items[i].ProductName)
		assert.True(t, want.UnitPrice.Equal(got.Items[i].UnitPrice))
		assert.Equal(t, want.Quantity, got.Items[i].Quantity)
		assert.Equal(t, o.ID, got.Items[i].OrderID)
	}

	updated, err := repo.UpdateQuantities(ctx, o.ID, map[int64]int{o.Items[0].ID: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Items[0].Quantity)
	assert.Equal(t, 1, updated.Items[1].Quantity)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, o.ID))
	_, err = repo.Get(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestRepository_CreateRejectsEmptyOrder(t *testing.T) {
	repo := New()
	_, err := repo.Create(context.Background(), nil)
	assert.True(t, order.IsValidation(err))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_ListOrderedByID(t *testing.T) {
	ctx := context.Background()
	repo := New()
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, lines())
		require.NoError(t, err)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i, o := range list {
		assert.Equal(t, int64(i+1), o.ID)
	}
}

func TestRepository_UpdateQuantitiesIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := New()
	a, err := repo.Create(ctx, lines())
	require.NoError(t, err)
	b, err := repo.Create(ctx, lines())
	require.NoError(t, err)

	tests := []struct {
		name       string
		quantities map[int64]int
	}{
		{"foreign line", map[int64]int{a.Items[0].ID: 9, b.Items[0].ID: 9}},
		{"negative quantity", map[int64]int{a.Items[0].ID: 9, a.Items[1].ID: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.UpdateQuantities(ctx, a.ID, tt.quantities)
			assert.True(t, order.IsValidation(err), "got %v", err)

			got, err := repo.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, a, got)
		})
	}
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := New()

	_, err := repo.Get(ctx, 42)
	assert.ErrorIs(t, err, order.ErrNotFound)
	_, err = repo.UpdateQuantities(ctx, 42, map[int64]int{1: 1})
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 42), order.ErrNotFound)
}

func TestRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := New()
	o, err := repo.Create(ctx, lines())
	require.NoError(t, err)

	o.Items[0].Quantity = 100
	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)
}
