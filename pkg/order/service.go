package order

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/events"
)

// Service validates order requests against the menu and applies them to a
// Repository. It does not log or retry; errors are returned unchanged.
type Service struct {
	repo     Repository
	menu     *catalog.Catalog
	events   events.Publisher
	producer string
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher emits an event after every committed change.
func WithPublisher(p events.Publisher, producer string) ServiceOption {
	return func(s *Service) {
		s.events = p
		s.producer = producer
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service over repo and menu.
func NewService(repo Repository, menu *catalog.Catalog, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		menu:     menu,
		events:   events.Nop{},
		producer: "coffeeshop",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Menu returns the products that can be ordered.
func (s *Service) Menu() []catalog.Product {
	return s.menu.List()
}

// PlaceOrder creates an order from a product name -> quantity submission.
// Products missing from raw count as zero; products with a zero quantity are
// skipped. A submitted value must be a non-negative integer, so a blank one
// is rejected. Every line records the menu price at the time of the call.
func (s *Service) PlaceOrder(ctx context.Context, raw map[string]string) (Order, error) {
	var lines []NewLine
	for _, p := range s.menu.List() {
		v, ok := raw[p.Name]
		if !ok {
			continue
		}
		q, err := parseQuantity(v)
		if err != nil {
			return Order{}, &ValidationError{Field: p.Name, Message: "invalid quantity for " + p.Name}
		}
		if q == 0 {
			continue
		}
		lines = append(lines, NewLine{ProductName: p.Name, UnitPrice: p.UnitPrice, Quantity: q})
	}
	if len(lines) == 0 {
		return Order{}, &ValidationError{Field: "items", Message: msgEmptyOrder}
	}

	o, err := s.repo.Create(ctx, lines)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.OrderPlaced, o)
	return o, nil
}

// ReviseOrder sets new quantities on the lines of an order, keyed by line id.
// Lines missing from raw keep their quantity and are not written. Zero is
// accepted and keeps the line. Keys that are not lines of the order are
// ignored.
func (s *Service) ReviseOrder(ctx context.Context, id int64, raw map[int64]string) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}

	// Only line ids are taken from o. Its quantities may already be stale.
	quantities := make(map[int64]int, len(raw))
	for _, l := range o.Items {
		v, ok := raw[l.ID]
		if !ok {
			continue
		}
		q, err := parseQuantity(v)
		if err != nil {
			return Order{}, &ValidationError{Field: lineField(l.ID), Message: msgInvalidInput}
		}
		quantities[l.ID] = q
	}

	updated, err := s.repo.UpdateQuantities(ctx, id, quantities)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.OrderRevised, updated)
	return updated, nil
}

// RemoveOrder deletes an order and its lines.
func (s *Service) RemoveOrder(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.OrderRemoved, Order{ID: id})
	return nil
}

// GetOrder returns a single order.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// ListOrders returns every order, oldest first.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

func (s *Service) emit(ctx context.Context, eventType string, o Order) {
	payload := events.OrderPayload{OrderID: o.ID}
	if eventType != events.OrderRemoved {
		total := o.Total()
		payload.Total = &total
		payload.Lines = make([]events.LinePayload, 0, len(o.Items))
		for _, l := range o.Items {
			payload.Lines = append(payload.Lines, events.LinePayload{
				LineID:      l.ID,
				ProductName: l.ProductName,
				UnitPrice:   l.UnitPrice,
				Quantity:    l.Quantity,
			})
		}
	}
	env, err := events.New(ctx, eventType, s.producer, o.ID, s.now(), payload)
	if err != nil {
		return
	}
	s.events.Publish(ctx, env)
}

var errNegative = errors.New("negative quantity")

// parseQuantity parses a submitted quantity. Blank input is malformed.
func parseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if q < 0 {
		return 0, errNegative
	}
	return q, nil
}
