package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

// ProductList is a joined batch read. Warning is set when inventory data
// could not be attached.
type ProductList struct {
	Products []domain.ProductWithInventory `json:"products"`
	Count    int                           `json:"count"`
	Filters  *domain.ProductFilter         `json:"filters,omitempty"`
	Warning  string                        `json:"-"`
}

// FilterCriteria is a filter request. Category is an alias of CategoryName.
type FilterCriteria struct {
	CategoryID   string           `json:"categoryId,omitempty"`
	Category     string           `json:"category,omitempty"`
	CategoryName string           `json:"categoryName,omitempty"`
	Name         string           `json:"name,omitempty"`
	MinPrice     *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice     *decimal.Decimal `json:"maxPrice,omitempty"`
}

func (c FilterCriteria) toFilter() (domain.ProductFilter, error) {
	if c.MinPrice != nil && c.MinPrice.IsNegative() {
		return domain.ProductFilter{}, domain.Validationf("minPrice must not be negative").
			WithDetails(map[string]any{"field": "minPrice"})
	}
	if c.MaxPrice != nil && c.MaxPrice.IsNegative() {
		return domain.ProductFilter{}, domain.Validationf("maxPrice must not be negative").
			WithDetails(map[string]any{"field": "maxPrice"})
	}
	if c.MinPrice != nil && c.MaxPrice != nil && c.MinPrice.GreaterThan(*c.MaxPrice) {
		return domain.ProductFilter{}, domain.Validationf("minPrice must not exceed maxPrice").
			WithDetails(map[string]any{"fields": []string{"minPrice", "maxPrice"}})
	}

	categoryName := strings.TrimSpace(c.CategoryName)
	if categoryName == "" {
		categoryName = strings.TrimSpace(c.Category)
	}
	return domain.ProductFilter{
		CategoryID:   strings.TrimSpace(c.CategoryID),
		CategoryName: categoryName,
		Name:         strings.TrimSpace(c.Name),
		MinPrice:     c.MinPrice,
		MaxPrice:     c.MaxPrice,
		ActiveOnly:   true,
	}, nil
}

// ProductService exposes the product operations to the transports.
type ProductService struct {
	repo       port.CatalogRepository
	saga       *ProductSaga
	resolver   *CategoryResolver
	aggregator *InventoryAggregator
	logger     *zap.Logger
}

func NewProductService(repo port.CatalogRepository, saga *ProductSaga, resolver *CategoryResolver, aggregator *InventoryAggregator, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:       repo,
		saga:       saga,
		resolver:   resolver,
		aggregator: aggregator,
		logger:     logger,
	}
}

func (s *ProductService) Create(ctx context.Context, in domain.ProductCreateInput) (*domain.CreationResult, error) {
	return s.saga.Create(ctx, in)
}

func (s *ProductService) FindOne(ctx context.Context, id string) (*domain.ProductWithInventory, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	joined := s.aggregator.Attach(ctx, *product)
	return &joined, nil
}

// FindAll returns every active product.
func (s *ProductService) FindAll(ctx context.Context) (*ProductList, error) {
	return s.list(ctx, domain.ProductFilter{ActiveOnly: true}, false)
}

func (s *ProductService) Filter(ctx context.Context, criteria FilterCriteria) (*ProductList, error) {
	filter, err := criteria.toFilter()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, true)
}

func (s *ProductService) list(ctx context.Context, filter domain.ProductFilter, echo bool) (*ProductList, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		return nil, domain.Internal("Failed to fetch products", err)
	}

	joined, warning := s.aggregator.AttachAll(ctx, products)
	out := &ProductList{Products: joined, Count: len(joined), Warning: warning}
	if echo {
		out.Filters = &filter
	}
	return out, nil
}

// Update applies a partial update. A category ID or name re-resolves the
// category the same way creation does.
func (s *ProductService) Update(ctx context.Context, id string, in domain.ProductUpdateInput) (*domain.Product, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes domain.ProductChanges
	if in.Name != nil {
		name := cleanText(*in.Name)
		if name == "" {
			return nil, domain.Validationf("Product name must not be empty").WithDetails(map[string]any{"field": "name"})
		}
		changes.Name = &name
	}
	if in.Description != nil {
		description := cleanText(*in.Description)
		changes.Description = &description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.Validationf("Product price must not be negative").WithDetails(map[string]any{"field": "price"})
		}
		changes.Price = in.Price
	}
	changes.IsActive = in.IsActive
	if in.CategoryID != "" || in.CategoryName != "" {
		categoryID, err := s.resolver.Resolve(ctx, in.CategoryID, in.CategoryName)
		if err != nil {
			return nil, domain.AsError(err, "Failed to resolve category")
		}
		changes.CategoryID = &categoryID
	}

	if changes.Empty() {
		return current, nil
	}

	updated, err := s.repo.UpdateProduct(ctx, current.ID, changes)
	switch {
	case errors.Is(err, port.ErrNotFound):
		return nil, domain.NotFound("Product", current.ID)
	case errors.Is(err, port.ErrConstraintViolation):
		return nil, domain.NewError(domain.KindConflict, "Product update violates a catalog constraint").Wrap(err)
	case err != nil:
		s.logger.Error("update product failed", zap.String("product_id", current.ID), zap.Error(err))
		return nil, domain.Internal("Failed to update product", err)
	}
	s.logger.Info("product updated", zap.String("product_id", updated.ID))
	return updated, nil
}

// Delete deactivates the product, or removes it when soft is false. It
// returns the product as it was left (soft) or as it was before removal.
func (s *ProductService) Delete(ctx context.Context, id string, soft bool) (*domain.Product, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if soft {
		inactive := false
		updated, err := s.repo.UpdateProduct(ctx, current.ID, domain.ProductChanges{IsActive: &inactive})
		if errors.Is(err, port.ErrNotFound) {
			return nil, domain.NotFound("Product", current.ID)
		}
		if err != nil {
			return nil, domain.Internal("Failed to delete product", fmt.Errorf("soft delete %s: %w", current.ID, err))
		}
		s.logger.Info("product soft deleted", zap.String("product_id", current.ID))
		return updated, nil
	}

	err = s.repo.DeleteProduct(ctx, current.ID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, domain.NotFound("Product", current.ID)
	}
	if err != nil {
		return nil, domain.Internal("Failed to delete product", fmt.Errorf("hard delete %s: %w", current.ID, err))
	}
	s.logger.Info("product deleted", zap.String("product_id", current.ID))
	return current, nil
}

func (s *ProductService) get(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Validationf("Product ID is required").WithDetails(map[string]any{"field": "id"})
	}
	product, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return nil, domain.NotFound("Product", id)
	}
	if err != nil {
		return nil, domain.Internal("Failed to fetch product", err)
	}
	return product, nil
}
