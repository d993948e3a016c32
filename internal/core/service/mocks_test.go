package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

// Mock CatalogRepository
type mockCatalogRepo struct {
	mu         sync.Mutex
	seq        int
	categories map[string]domain.Category
	products   map[string]domain.Product

	categoryCreates int
	// raceOnCreate makes CreateCategory store the category and still report
	// a uniqueness violation, as if another request had won.
	raceOnCreate bool
	deleteErr    error
	listErr      error
	updateErr    error
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		categories: make(map[string]domain.Category),
		products:   make(map[string]domain.Product),
	}
}

func (m *mockCatalogRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockCatalogRepo) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &c, nil
}

func (m *mockCatalogRepo) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockCatalogRepo) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return nil, port.ErrConstraintViolation
		}
	}
	category.ID = m.nextID("cat")
	category.CreatedAt = time.Now()
	m.categories[category.ID] = category
	m.categoryCreates++
	if m.raceOnCreate {
		return nil, port.ErrConstraintViolation
	}
	return &category, nil
}

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCatalogRepo) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[product.CategoryID]; !ok {
		return nil, port.ErrConstraintViolation
	}
	product.ID = m.nextID("prod")
	product.CreatedAt = time.Now()
	m.products[product.ID] = product
	return &product, nil
}

func (m *mockCatalogRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalogRepo) FindProductByNameContains(ctx context.Context, substr string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.sortedProducts() {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(substr)) {
			return &p, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockCatalogRepo) UpdateProduct(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	p = changes.Apply(p)
	m.products[id] = p
	return &p, nil
}

func (m *mockCatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.products[id]; !ok {
		return port.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockCatalogRepo) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Product
	for _, p := range m.sortedProducts() {
		if c, ok := m.categories[p.CategoryID]; ok {
			p.Category = &c
		}
		if filter.Matches(p, strings.ToLower) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) sortedProducts() []domain.Product {
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockCatalogRepo) productCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

func (m *mockCatalogRepo) addCategory(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("cat")
	m.categories[id] = domain.Category{ID: id, Name: name}
	return id
}

// Mock InventoryClient
type mockInventory struct {
	mu      sync.Mutex
	calls   int
	created []domain.InventoryRecord

	// err fails every call; reply overrides the generated reply.
	err   error
	reply json.RawMessage
	// createReply, when set, builds the create reply from the request.
	createReply func(domain.InventoryRecord) any
	// block makes calls wait for the context to end.
	block bool
}

func (m *mockInventory) record(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	block, err := m.block, m.err
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (m *mockInventory) RequestCreate(ctx context.Context, record domain.InventoryRecord) (json.RawMessage, error) {
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, record)
	if m.reply != nil {
		return m.reply, nil
	}
	if m.createReply != nil {
		return json.Marshal(m.createReply(record))
	}
	return json.Marshal(map[string]any{"data": map[string]any{"inventory": record}})
}

func (m *mockInventory) RequestFindAll(ctx context.Context) (json.RawMessage, error) {
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reply != nil {
		return m.reply, nil
	}
	return json.Marshal(m.created)
}

func (m *mockInventory) RequestFindOne(ctx context.Context, sku string) (json.RawMessage, error) {
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reply != nil {
		return m.reply, nil
	}
	for _, r := range m.created {
		if r.SKU == sku {
			return json.Marshal(map[string]any{"data": r})
		}
	}
	return json.RawMessage(`{"data":null}`), nil
}

func (m *mockInventory) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var errInventoryDown = errors.New("inventory: connection refused")
