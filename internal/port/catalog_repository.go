package port

import (
	"context"
	"errors"

	"github.com/rl1809/catalog-service/internal/core/domain"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when a write breaks a uniqueness or foreign key constraint.
	ErrConstraintViolation = errors.New("constraint violation")
)

// CatalogRepository is the only gateway to product and category records.
// Every method touches a single record or runs a single query; there are no
// multi-record transactions.
type CatalogRepository interface {
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// CreateProduct assigns the product ID and creation time.
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// FindProductByNameContains returns the oldest product whose name contains
	// substr, compared case-insensitively. Ties on creation time go to the lower id.
	FindProductByNameContains(ctx context.Context, substr string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// ListProducts returns the products matching filter ordered by name.
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}
