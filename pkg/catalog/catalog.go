// Package catalog holds the fixed list of products a customer can order.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a menu entry.
type Product struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// MaxPrice is the exclusive upper bound on a unit price. Prices are stored
// as NUMERIC(10,2), so they carry at most two decimal places.
var MaxPrice = decimal.New(1, 8)

// ErrProductNotFound indicates the named product is not on the menu.
var ErrProductNotFound = errors.New("product not found")

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
	byName   map[string]int
}

// New builds a catalog from products, preserving their order.
func New(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byName:   make(map[string]int, len(products)),
	}
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.New("product name is required")
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate product %q", p.Name)
		}
		if !p.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("product %q: price must be positive", p.Name)
		}
		if !p.UnitPrice.Equal(p.UnitPrice.Round(2)) {
			return nil, fmt.Errorf("product %q: price must have at most 2 decimal places", p.Name)
		}
		if p.UnitPrice.GreaterThanOrEqual(MaxPrice) {
			return nil, fmt.Errorf("product %q: price must be below %s", p.Name, MaxPrice)
		}
		c.byName[p.Name] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default returns the house menu.
func Default() *Catalog {
	c, err := New(
		Product{Name: "Caffe Latte", UnitPrice: decimal.RequireFromString("2.50")},
		Product{Name: "Cafe Mocha", UnitPrice: decimal.RequireFromString("5.00")},
		Product{Name: "Caramel Macchiato", UnitPrice: decimal.RequireFromString("4.50")},
		Product{Name: "Cafe Americano", UnitPrice: decimal.RequireFromString("3.00")},
		Product{Name: "Cappuccino", UnitPrice: decimal.RequireFromString("3.50")},
		Product{Name: "Double Espresso", UnitPrice: decimal.RequireFromString("3.00")},
		Product{Name: "Espresso", UnitPrice: decimal.RequireFromString("2.00")},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the products in menu order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// FindByName looks a product up by its exact name.
func (c *Catalog) FindByName(name string) (Product, error) {
	i, ok := c.byName[name]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// Len reports the number of products.
func (c *Catalog) Len() int { return len(c.products) }
