package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

// MemoryAdapter keeps the catalog in process. It backs local runs and the
// stress tool.
type MemoryAdapter struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	byName     map[string]string
	products   map[string]domain.Product
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		categories: make(map[string]domain.Category),
		byName:     make(map[string]string),
		products:   make(map[string]domain.Product),
	}
}

// fold is used for case-insensitive matching. A Caser is not safe for
// concurrent use, so every call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func (m *MemoryAdapter) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &c, nil
}

func (m *MemoryAdapter) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return nil, port.ErrNotFound
	}
	c := m.categories[id]
	return &c, nil
}

func (m *MemoryAdapter) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[category.Name]; exists {
		return nil, port.ErrConstraintViolation
	}
	category.ID = uuid.NewString()
	category.CreatedAt = time.Now().UTC()
	m.categories[category.ID] = category
	m.byName[category.Name] = category.ID
	return &category, nil
}

func (m *MemoryAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryAdapter) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[product.CategoryID]; !ok {
		return nil, port.ErrConstraintViolation
	}
	product.ID = uuid.NewString()
	product.CreatedAt = time.Now().UTC()
	product.Category = nil
	m.products[product.ID] = product
	return m.withCategory(product), nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return m.withCategory(p), nil
}

func (m *MemoryAdapter) FindProductByNameContains(ctx context.Context, substr string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := fold(substr)
	var found *domain.Product
	for _, p := range m.products {
		if !strings.Contains(fold(p.Name), needle) {
			continue
		}
		if found == nil || p.CreatedAt.Before(found.CreatedAt) ||
			(p.CreatedAt.Equal(found.CreatedAt) && p.ID < found.ID) {
			found = m.withCategory(p)
		}
	}
	if found == nil {
		return nil, port.ErrNotFound
	}
	return found, nil
}

func (m *MemoryAdapter) UpdateProduct(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	if changes.CategoryID != nil {
		if _, ok := m.categories[*changes.CategoryID]; !ok {
			return nil, port.ErrConstraintViolation
		}
	}
	p = changes.Apply(p)
	m.products[id] = p
	return m.withCategory(p), nil
}

func (m *MemoryAdapter) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return port.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Product
	for _, p := range m.products {
		joined := m.withCategory(p)
		if filter.Matches(*joined, fold) {
			out = append(out, *joined)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// withCategory returns a copy of p joined with its category. Callers hold mu.
func (m *MemoryAdapter) withCategory(p domain.Product) *domain.Product {
	if c, ok := m.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return &p
}
