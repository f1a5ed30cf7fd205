package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"inventory-service/internal/models"
)

// CreateCustomer inserts a customer
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO customers (name, phone, address)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.Name, c.Phone, c.Address)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return mapError("create customer", err)
	}
	return nil
}

// GetCustomerByID retrieves a customer. Archived customers are still returned
// so sales history stays viewable.
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("customer", id)
	}
	if err != nil {
		return nil, mapError("get customer", err)
	}
	return &customer, nil
}

// ListCustomers pages through active customers matching name or phone
func (s *Store) ListCustomers(ctx context.Context, search string, page models.Page) ([]models.Customer, int, error) {
	where := "WHERE archived_at IS NULL"
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += " AND (name ILIKE $1 OR phone ILIKE $1)"
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM customers "+where, args...); err != nil {
		return nil, 0, mapError("count customers", err)
	}

	query, args := paginate("SELECT "+customerColumns+" FROM customers "+where+" ORDER BY name", args, page)
	var customers []models.Customer
	if err := s.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, mapError("list customers", err)
	}
	return customers, total, nil
}

// UpdateCustomer edits an active customer
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE customers SET name = $1, phone = $2, address = $3
		WHERE id = $4 AND archived_at IS NULL
		RETURNING created_at`,
		c.Name, c.Phone, c.Address, c.ID)
	err := row.Scan(&c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError("customer", c.ID)
	}
	return mapError("update customer", err)
}

// ArchiveCustomer soft-deletes a customer
func (s *Store) ArchiveCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE customers SET archived_at = NOW() WHERE id = $1 AND archived_at IS NULL", id)
	return archived(res, err, "customer", id)
}

// CountCustomers counts active customers
func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM customers WHERE archived_at IS NULL")
	return n, mapError("count customers", err)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
