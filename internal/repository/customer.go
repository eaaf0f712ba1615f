package repository

import (
	"context"
	"fmt"

	"core-banking-api/internal/model"
)

// CreateCustomer inserts a customer and fills in its creation time
func (q *Queries) CreateCustomer(ctx context.Context, customer *model.Customer) error {
	query := `
		INSERT INTO customers (id, name, address, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	err := q.db.QueryRowContext(ctx, query, customer.ID, customer.Name, customer.Address).
		Scan(&customer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", classify(err))
	}

	return nil
}

// ListCustomers returns customers ordered by name
func (q *Queries) ListCustomers(ctx context.Context, limit, offset int) ([]model.Customer, error) {
	query := `
		SELECT id, name, address, created_at
		FROM customers
		ORDER BY name ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

// CountCustomers counts all customers
func (q *Queries) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}
