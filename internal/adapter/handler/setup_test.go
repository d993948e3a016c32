package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rl1809/catalog-service/internal/adapter/storage"
	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
)

// Mock InventoryClient
type mockInventory struct {
	mu      sync.Mutex
	records map[string]domain.InventoryRecord
	down    bool
}

func newMockInventory() *mockInventory {
	return &mockInventory{records: make(map[string]domain.InventoryRecord)}
}

func (m *mockInventory) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *mockInventory) RequestCreate(ctx context.Context, record domain.InventoryRecord) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errors.New("inventory unreachable")
	}
	m.records[record.SKU] = record
	return json.Marshal(record)
}

func (m *mockInventory) RequestFindAll(ctx context.Context) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errors.New("inventory unreachable")
	}
	list := make([]domain.InventoryRecord, 0, len(m.records))
	for _, r := range m.records {
		list = append(list, r)
	}
	return json.Marshal(map[string]any{"data": list})
}

func (m *mockInventory) RequestFindOne(ctx context.Context, sku string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errors.New("inventory unreachable")
	}
	return json.Marshal(map[string]any{"data": map[string]any{"inventory": m.records[sku]}})
}

type testStack struct {
	repo         *storage.MemoryAdapter
	inventory    *mockInventory
	products     *service.ProductService
	categories   *service.CategoryService
	deactivation *service.DeactivationHandler
}

func newTestStack() *testStack {
	repo := storage.NewMemoryAdapter()
	inv := newMockInventory()
	resolver := service.NewCategoryResolver(repo, nil)
	saga := service.NewProductSaga(repo, resolver, inv, nil, 0)
	return &testStack{
		repo:         repo,
		inventory:    inv,
		products:     service.NewProductService(repo, saga, resolver, service.NewInventoryAggregator(inv, nil, 0), nil),
		categories:   service.NewCategoryService(repo, nil),
		deactivation: service.NewDeactivationHandler(repo, nil),
	}
}
