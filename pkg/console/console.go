// Package console renders the menu and stored orders for the terminal.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/order"
)

var (
	accent = lipgloss.Color("#B45309") // roast brown
	dim    = lipgloss.Color("#6B7280")
	faint  = lipgloss.Color("#3F3F46")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	totalStyle  = lipgloss.NewStyle().Bold(true)
)

func newTable(headers ...string) *table.Table {
	numeric := make(map[int]bool)
	for i, h := range headers {
		if h == "Price" || h == "Unit price" || h == "Qty" || h == "Subtotal" {
			numeric[i] = true
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

// RenderMenu renders the products as a table.
func RenderMenu(products []catalog.Product) string {
	t := newTable("Product", "Price")
	for _, p := range products {
		t.Row(p.Name, p.UnitPrice.StringFixed(2))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Menu"))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// RenderOrders renders every order with its lines and total.
func RenderOrders(orders []order.Order) string {
	var b strings.Builder
	if len(orders) == 0 {
		b.WriteString(dimStyle.Render("No orders."))
		b.WriteString("\n")
		return b.String()
	}
	for i, o := range orders {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Order #%d", o.ID)))
		b.WriteString("\n")

		t := newTable("Product", "Unit price", "Qty", "Subtotal")
		for _, l := range o.Items {
			t.Row(l.ProductName, l.UnitPrice.StringFixed(2), strconv.Itoa(l.Quantity), l.Subtotal().StringFixed(2))
		}
		b.WriteString(t.String())
		b.WriteString("\n")
		b.WriteString(totalStyle.Render("Total: " + o.Total().StringFixed(2)))
		b.WriteString("\n")
		if i < len(orders)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
