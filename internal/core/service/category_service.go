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

type CategoryService struct {
	repo   port.CatalogRepository
	logger *zap.Logger
}

func NewCategoryService(repo port.CatalogRepository, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, logger: logger}
}

// Create adds a category. A duplicate name is reported as Conflict.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = cleanText(name)
	if name == "" {
		return nil, domain.Validationf("Category name is required").WithDetails(map[string]any{"field": "name"})
	}

	s.logger.Info("creating category", zap.String("category_name", name))
	category, err := s.repo.CreateCategory(ctx, domain.Category{Name: name, Description: cleanText(description)})
	if errors.Is(err, port.ErrConstraintViolation) {
		return nil, domain.NewError(domain.KindConflict, fmt.Sprintf("Category with name %q already exists", name)).
			WithDetails(map[string]any{"field": "name"})
	}
	if err != nil {
		s.logger.Error("create category failed", zap.String("category_name", name), zap.Error(err))
		return nil, domain.Internal("Failed to create category", err)
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Validationf("Category ID is required")
	}
	category, err := s.repo.GetCategory(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return nil, domain.NotFound("Category", id)
	}
	if err != nil {
		return nil, domain.Internal("Failed to fetch category", err)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, domain.Internal("Failed to fetch categories", err)
	}
	return categories, nil
}
