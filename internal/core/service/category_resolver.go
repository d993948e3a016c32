package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

// CategoryResolver turns a category ID or name into a valid category ID.
type CategoryResolver struct {
	repo   port.CatalogRepository
	logger *zap.Logger
}

func NewCategoryResolver(repo port.CatalogRepository, logger *zap.Logger) *CategoryResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryResolver{repo: repo, logger: logger}
}

// Resolve returns categoryID when it exists. Otherwise it looks categoryName
// up and creates the category when missing. A concurrent creation of the same
// name is absorbed by re-reading the winner.
func (r *CategoryResolver) Resolve(ctx context.Context, categoryID, categoryName string) (string, error) {
	categoryID = strings.TrimSpace(categoryID)
	categoryName = cleanText(categoryName)

	switch {
	case categoryID != "":
		return r.ensureExists(ctx, categoryID)
	case categoryName != "":
		return r.getOrCreate(ctx, categoryName)
	default:
		return "", domain.Validationf("Either categoryId or categoryName must be provided").
			WithDetails(map[string]any{"fields": []string{"categoryId", "categoryName"}})
	}
}

func (r *CategoryResolver) ensureExists(ctx context.Context, id string) (string, error) {
	category, err := r.repo.GetCategory(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return "", domain.NotFound("Category", id)
	}
	if err != nil {
		return "", domain.Internal("Failed to resolve category", fmt.Errorf("get category %s: %w", id, err))
	}
	return category.ID, nil
}

func (r *CategoryResolver) getOrCreate(ctx context.Context, name string) (string, error) {
	category, err := r.repo.GetCategoryByName(ctx, name)
	if err == nil {
		return category.ID, nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return "", domain.Internal("Failed to resolve category", fmt.Errorf("get category by name %q: %w", name, err))
	}

	r.logger.Info("creating category", zap.String("category_name", name))
	created, err := r.repo.CreateCategory(ctx, domain.Category{
		Name:        name,
		Description: autoDescription(name),
	})
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, port.ErrConstraintViolation) {
		return "", domain.Internal("Failed to create category", fmt.Errorf("create category %q: %w", name, err))
	}

	// Lost a race with an identical request; the category exists now.
	r.logger.Info("category created concurrently, re-reading", zap.String("category_name", name))
	category, err = r.repo.GetCategoryByName(ctx, name)
	if err != nil {
		return "", domain.Internal("Failed to resolve category", fmt.Errorf("re-read category %q: %w", name, err))
	}
	return category.ID, nil
}

func autoDescription(name string) string {
	return "Auto-created category for " + name
}
