// Package memory implements an in-memory order repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"coffeeshop/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
// Ids are assigned from per-table sequences starting at 1.
type Repository struct {
	mu       sync.RWMutex
	orders   map[int64]order.Order
	nextID   int64
	nextLine int64
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{orders: make(map[int64]order.Order)}
}

// Create stores the order and its lines.
func (r *Repository) Create(ctx context.Context, lines []order.NewLine) (order.Order, error) {
	if err := order.ValidateNewLines(lines); err != nil {
		return order.Order{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o := order.Order{ID: r.nextID, Items: make([]order.Line, 0, len(lines))}
	for _, nl := range lines {
		r.nextLine++
		o.Items = append(o.Items, order.Line{
			ID:          r.nextLine,
			OrderID:     o.ID,
			ProductName: nl.ProductName,
			UnitPrice:   nl.UnitPrice,
			Quantity:    nl.Quantity,
		})
	}
	r.orders[o.ID] = o
	return o.Clone(), nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id int64) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o.Clone(), nil
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateQuantities validates every requested change before applying any.
func (r *Repository) UpdateQuantities(ctx context.Context, id int64, quantities map[int64]int) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if err := order.ValidateQuantities(o, quantities); err != nil {
		return order.Order{}, err
	}

	updated := o.Clone()
	for i, l := range updated.Items {
		if q, ok := quantities[l.ID]; ok {
			updated.Items[i].Quantity = q
		}
	}
	r.orders[id] = updated
	return updated.Clone(), nil
}

// Delete removes an order and its lines.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}
