package store

import (
	"context"
	"database/sql"
	"errors"

	"inventory-service/internal/models"
)

// CreateProduct inserts a product and fills in ID and CreatedAt
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO products (name, quantity, price, cost)
		VALUES ($1, $2, $3, $4)
		RETURNING id, stock_version, created_at`,
		p.Name, p.Quantity, p.Price, p.Cost)
	if err := row.Scan(&p.ID, &p.StockVersion, &p.CreatedAt); err != nil {
		return mapError("create product", err)
	}
	return nil
}

// GetProductByID retrieves an active product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND archived_at IS NULL", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, mapError("get product", err)
	}
	return &product, nil
}

// GetProducts retrieves all active products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE archived_at IS NULL ORDER BY id")
	return products, mapError("get products", err)
}

// ListProducts pages through active products, optionally filtered by name.
// A zero page size returns every match.
func (s *Store) ListProducts(ctx context.Context, search string, page models.Page) ([]models.Product, int, error) {
	where := "WHERE archived_at IS NULL"
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += " AND name ILIKE $1"
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products "+where, args...); err != nil {
		return nil, 0, mapError("count products", err)
	}

	query, args := paginate("SELECT "+productColumns+" FROM products "+where+" ORDER BY name", args, page)
	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, mapError("list products", err)
	}
	return products, total, nil
}

// UpdateProduct edits an active product. Quantity edits bump the stock version.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE products
		SET name = $1, quantity = $2, price = $3, cost = $4,
		    stock_version = stock_version + CASE WHEN quantity <> $2 THEN 1 ELSE 0 END
		WHERE id = $5 AND archived_at IS NULL
		RETURNING stock_version, created_at`,
		p.Name, p.Quantity, p.Price, p.Cost, p.ID)
	err := row.Scan(&p.StockVersion, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError("product", p.ID)
	}
	return mapError("update product", err)
}

// ArchiveProduct soft-deletes a product so historical sale items keep their reference
func (s *Store) ArchiveProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET archived_at = NOW() WHERE id = $1 AND archived_at IS NULL", id)
	return archived(res, err, "product", id)
}

// CountProducts counts active products
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products WHERE archived_at IS NULL")
	return n, mapError("count products", err)
}

// CountLowStock counts active products below threshold
func (s *Store) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM products WHERE archived_at IS NULL AND quantity < $1", threshold)
	return n, mapError("count low stock", err)
}

func archived(res sql.Result, err error, entity string, id int64) error {
	if err != nil {
		return mapError("archive "+entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("archive "+entity, err)
	}
	if n == 0 {
		return models.NewNotFoundError(entity, id)
	}
	return nil
}

// paginate appends LIMIT/OFFSET placeholders after the existing args
func paginate(query string, args []interface{}, page models.Page) (string, []interface{}) {
	if page.Size <= 0 {
		return query, args
	}
	n := len(args)
	query += " LIMIT $" + itoa(n+1) + " OFFSET $" + itoa(n+2)
	return query, append(args, page.Size, page.Offset())
}
