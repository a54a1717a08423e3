package postgres

const (
	insertOrderSQL = `INSERT INTO orders DEFAULT VALUES RETURNING id`

	insertLineSQL = `
		INSERT INTO order_lines (order_id, product_name, unit_price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	selectOrderSQL = `SELECT id FROM orders WHERE id = $1`

	lockOrderSQL = `SELECT id FROM orders WHERE id = $1 FOR UPDATE`

	selectLinesSQL = `
		SELECT id, order_id, product_name, unit_price, quantity
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`

	selectOrdersSQL = `SELECT id FROM orders ORDER BY id`

	selectAllLinesSQL = `
		SELECT id, order_id, product_name, unit_price, quantity
		FROM order_lines
		ORDER BY order_id, id`

	updateLineQuantitySQL = `
		UPDATE order_lines SET quantity = $1
		WHERE id = $2 AND order_id = $3`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	selectMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	insertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)
