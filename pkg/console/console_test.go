package console_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/console"
	"coffeeshop/pkg/order"
)

func TestRenderMenu_ListsProducts(t *testing.T) {
	output := console.RenderMenu(catalog.Default().List())
	assert.Contains(t, output, "Menu")
	assert.Contains(t, output, "Caramel Macchiato")
	assert.Contains(t, output, "4.50")
	assert.Contains(t, output, "Espresso")
}

func TestRenderOrders_ContainsTotals(t *testing.T) {
	orders := []order.Order{
		{ID: 1, Items: []order.Line{
			{ID: 1, OrderID: 1, ProductName: "Espresso", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2},
			{ID: 2, OrderID: 1, ProductName: "Cappuccino", UnitPrice: decimal.RequireFromString("3.50"), Quantity: 1},
		}},
		{ID: 2, Items: []order.Line{
			{ID: 3, OrderID: 2, ProductName: "Cafe Mocha", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 0},
		}},
	}

	output := console.RenderOrders(orders)
	assert.Contains(t, output, "Order #1")
	assert.Contains(t, output, "Order #2")
	assert.Contains(t, output, "Total: 7.50")
	assert.Contains(t, output, "Total: 0.00")
	assert.Contains(t, output, "Cafe Mocha")
}

func TestRenderOrders_Empty(t *testing.T) {
	assert.Contains(t, console.RenderOrders(nil), "No orders.")
}
