package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"coffeeshop/pkg/order"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository. The schema is created by Migrate.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create inserts a new order and its lines in one transaction.
func (r *Repository) Create(ctx context.Context, lines []order.NewLine) (order.Order, error) {
	if err := order.ValidateNewLines(lines); err != nil {
		return order.Order{}, err
	}
	var o order.Order
	err := r.inTx(ctx, "create order", nil, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, insertOrderSQL).Scan(&o.ID); err != nil {
			return err
		}
		o.Items = make([]order.Line, 0, len(lines))
		for _, nl := range lines {
			l := order.Line{
				OrderID:     o.ID,
				ProductName: nl.ProductName,
				UnitPrice:   nl.UnitPrice,
				Quantity:    nl.Quantity,
			}
			if err := tx.QueryRowContext(ctx, insertLineSQL, o.ID, nl.ProductName, nl.UnitPrice, nl.Quantity).Scan(&l.ID); err != nil {
				return err
			}
			o.Items = append(o.Items, l)
		}
		return nil
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id int64) (order.Order, error) {
	o, err := getOrder(ctx, r.db, id)
	if err != nil {
		return order.Order{}, wrap("get order", err)
	}
	return o, nil
}

// List fetches all orders from a single snapshot.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.inTx(ctx, "list orders", opts, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectOrdersSQL)
		if err != nil {
			return err
		}
		index := map[int64]int{}
		for rows.Next() {
			var o order.Order
			if err := rows.Scan(&o.ID); err != nil {
				rows.Close()
				return err
			}
			index[o.ID] = len(orders)
			orders = append(orders, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		lines, err := scanLines(tx.QueryContext(ctx, selectAllLinesSQL))
		if err != nil {
			return err
		}
		for _, l := range lines {
			if i, ok := index[l.OrderID]; ok {
				orders[i].Items = append(orders[i].Items, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateQuantities updates the quantities of an order's lines while holding
// a row lock on the order.
func (r *Repository) UpdateQuantities(ctx context.Context, id int64, quantities map[int64]int) (order.Order, error) {
	var updated order.Order
	err := r.inTx(ctx, "update quantities", nil, func(tx *sql.Tx) error {
		var locked int64
		if err := tx.QueryRowContext(ctx, lockOrderSQL, id).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return order.ErrNotFound
			}
			return err
		}
		current, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := order.ValidateQuantities(current, quantities); err != nil {
			return err
		}

		lineIDs := make([]int64, 0, len(quantities))
		for lineID := range quantities {
			lineIDs = append(lineIDs, lineID)
		}
		sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })
		for _, lineID := range lineIDs {
			if _, err := tx.ExecContext(ctx, updateLineQuantitySQL, quantities[lineID], lineID, id); err != nil {
				return err
			}
		}

		updated, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return order.Order{}, err
	}
	return updated, nil
}

// Delete removes an order; its lines go with it through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.inTx(ctx, "delete order", nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteOrderSQL, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

// inTx runs fn in a transaction. Domain errors from fn are returned as is,
// everything else becomes a *order.StorageError. The transaction is rolled
// back unless fn and the commit succeed.
func (r *Repository) inTx(ctx context.Context, op string, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return &order.StorageError{Op: op, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return &order.StorageError{Op: op, Err: err}
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, order.ErrNotFound) || order.IsValidation(err) {
		return err
	}
	return &order.StorageError{Op: op, Err: err}
}

func getOrder(ctx context.Context, q querier, id int64) (order.Order, error) {
	var o order.Order
	if err := q.QueryRowContext(ctx, selectOrderSQL, id).Scan(&o.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	lines, err := scanLines(q.QueryContext(ctx, selectLinesSQL, id))
	if err != nil {
		return order.Order{}, err
	}
	o.Items = lines
	return o, nil
}

func scanLines(rows *sql.Rows, err error) ([]order.Line, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductName, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
