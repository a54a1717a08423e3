package order

import (
	"context"

	"github.com/shopspring/decimal"
)

// Order represents a placed coffee order. It owns its lines.
type Order struct {
	ID    int64  `json:"id"`
	Items []Line `json:"items"`
}

// Line is one product-quantity-price record of an order.
type Line struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// NewLine is a line to be created together with a new order.
type NewLine struct {
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums the subtotals of all lines.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Items {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Line returns the line with the given id.
func (o Order) Line(id int64) (Line, bool) {
	for _, l := range o.Items {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	items := make([]Line, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// Repository defines behavior for persisting orders.
//
// Every mutating method runs as one transaction: on failure nothing is
// changed and a *StorageError is returned.
type Repository interface {
	// Create stores a new order with lines. lines must not be empty and
	// every quantity must be at least 1.
	Create(ctx context.Context, lines []NewLine) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	// List returns all orders ordered by id ascending.
	List(ctx context.Context) ([]Order, error)
	// UpdateQuantities sets line quantities of an order, keyed by line id.
	// Either every quantity is applied or none is.
	UpdateQuantities(ctx context.Context, id int64, quantities map[int64]int) (Order, error)
	// Delete removes the order and all of its lines.
	Delete(ctx context.Context, id int64) error
}

// ValidateNewLines checks the invariants of a create request. Stores call
// it before opening a transaction.
func ValidateNewLines(lines []NewLine) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "items", Message: msgEmptyOrder}
	}
	for _, l := range lines {
		if l.ProductName == "" {
			return &ValidationError{Field: "product_name", Message: "product name is required"}
		}
		if l.Quantity < 1 {
			return &ValidationError{Field: l.ProductName, Message: "invalid quantity for " + l.ProductName}
		}
	}
	return nil
}

// ValidateQuantities checks an update request against the current order.
func ValidateQuantities(o Order, quantities map[int64]int) error {
	for lineID, q := range quantities {
		if _, ok := o.Line(lineID); !ok {
			return &ValidationError{Field: lineField(lineID), Message: "line does not belong to the order"}
		}
		if q < 0 {
			return &ValidationError{Field: lineField(lineID), Message: msgInvalidInput}
		}
	}
	return nil
}
