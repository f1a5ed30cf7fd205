package service

import (
	"context"
	"strings"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService maintains products and customers
type CatalogService struct {
	catalog           store.Catalog
	stock             *StockManager
	lowStockThreshold int
	logger            *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog store.Catalog, stock *StockManager, lowStockThreshold int) *CatalogService {
	return &CatalogService{
		catalog:           catalog,
		stock:             stock,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// ProductInput carries editable product fields
type ProductInput struct {
	Name     string          `json:"name" binding:"notblank"`
	Quantity int             `json:"quantity" binding:"min=0"`
	Price    decimal.Decimal `json:"price" binding:"dgte0,dscale2"`
	Cost     decimal.Decimal `json:"cost" binding:"dgte0,dscale2"`
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return models.NewValidationError("name", "is required")
	case in.Quantity < 0:
		return models.NewValidationError("quantity", "must not be negative")
	}
	if err := checkAmount("price", &in.Price); err != nil {
		return err
	}
	return checkAmount("cost", &in.Cost)
}

// CustomerInput carries editable customer fields
type CustomerInput struct {
	Name    string  `json:"name" binding:"notblank"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (in *CustomerInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.NewValidationError("name", "is required")
	}
	return nil
}

// CreateProduct adds a product to the catalog
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:     in.Name,
		Quantity: in.Quantity,
		Price:    in.Price,
		Cost:     in.Cost,
	}
	if err := s.catalog.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	s.stock.cacheStock(ctx, p)
	return p, nil
}

// GetProduct returns an active product
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.catalog.GetProductByID(ctx, id)
}

// ListProducts pages through products matching search
func (s *CatalogService) ListProducts(ctx context.Context, search string, page models.Page) (models.PagedResult[models.Product], error) {
	products, total, err := s.catalog.ListProducts(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return models.PagedResult[models.Product]{}, err
	}
	return models.NewPagedResult(products, page, total), nil
}

// UpdateProduct replaces a product's editable fields. A quantity edit is an
// absolute stock count and bumps the stock version.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:       id,
		Name:     in.Name,
		Quantity: in.Quantity,
		Price:    in.Price,
		Cost:     in.Cost,
	}
	if err := s.catalog.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	s.stock.cacheStock(ctx, p)
	return p, nil
}

// ArchiveProduct hides a product from the catalog; past sales keep it
func (s *CatalogService) ArchiveProduct(ctx context.Context, id int64) error {
	if err := s.catalog.ArchiveProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product archived", zap.Int64("product_id", id))
	s.stock.evictStock(ctx, id)
	return nil
}

// CountLowStock counts products under threshold, or the configured
// threshold when threshold <= 0
func (s *CatalogService) CountLowStock(ctx context.Context, threshold int) (int, error) {
	if threshold <= 0 {
		threshold = s.lowStockThreshold
	}
	return s.catalog.CountLowStock(ctx, threshold)
}

// CreateCustomer adds a customer
func (s *CatalogService) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &models.Customer{Name: in.Name, Phone: in.Phone, Address: in.Address}
	if err := s.catalog.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", zap.Int64("customer_id", c.ID))
	return c, nil
}

// GetCustomer returns a customer, archived ones included
func (s *CatalogService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return s.catalog.GetCustomerByID(ctx, id)
}

// ListCustomers pages through customers matching search on name or phone
func (s *CatalogService) ListCustomers(ctx context.Context, search string, page models.Page) (models.PagedResult[models.Customer], error) {
	customers, total, err := s.catalog.ListCustomers(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return models.PagedResult[models.Customer]{}, err
	}
	return models.NewPagedResult(customers, page, total), nil
}

// UpdateCustomer replaces a customer's editable fields
func (s *CatalogService) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) (*models.Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &models.Customer{ID: id, Name: in.Name, Phone: in.Phone, Address: in.Address}
	if err := s.catalog.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ArchiveCustomer hides a customer from new sales
func (s *CatalogService) ArchiveCustomer(ctx context.Context, id int64) error {
	if err := s.catalog.ArchiveCustomer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Customer archived", zap.Int64("customer_id", id))
	return nil
}
