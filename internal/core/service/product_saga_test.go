package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-service/internal/core/domain"
)

func newTestSaga(repo *mockCatalogRepo, inv *mockInventory, timeout time.Duration) *ProductSaga {
	return NewProductSaga(repo, NewCategoryResolver(repo, nil), inv, nil, timeout)
}

func intPtr(v int) *int { return &v }

func lampInput(quantity *int) domain.ProductCreateInput {
	return domain.ProductCreateInput{
		Name:         "Desk Lamp",
		Description:  "Warm light",
		Price:        decimal.RequireFromString("19.99"),
		Quantity:     quantity,
		CategoryName: "Lighting",
	}
}

func TestCreate_WithoutQuantity(t *testing.T) {
	for _, qty := range []*int{nil, intPtr(0), intPtr(-3)} {
		repo := newMockCatalogRepo()
		inv := &mockInventory{}
		saga := newTestSaga(repo, inv, 0)

		res, err := saga.Create(context.Background(), lampInput(qty))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeSuccessWithoutInventory, res.Outcome)
		assert.Equal(t, domain.SagaDone, res.State)
		assert.True(t, res.Product.IsActive)
		assert.Nil(t, res.Inventory)
		assert.Equal(t, 1, repo.productCount())
		assert.Zero(t, inv.callCount())
	}
}

func TestCreate_WithInventory(t *testing.T) {
	repo := newMockCatalogRepo()
	inv := &mockInventory{}
	saga := newTestSaga(repo, inv, 0)

	res, err := saga.Create(context.Background(), lampInput(intPtr(5)))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccessWithInventory, res.Outcome)
	require.NotNil(t, res.Inventory)
	assert.Equal(t, "PROD-"+res.Product.ID, res.Inventory.SKU)
	assert.Equal(t, 5, res.Inventory.Quantity)

	require.Len(t, inv.created, 1)
	assert.Equal(t, domain.InventoryRecord{SKU: "PROD-" + res.Product.ID, Quantity: 5, Reserved: 0}, inv.created[0])
}

func TestCreate_ListReplyCountsAsInventory(t *testing.T) {
	replies := map[string]func(domain.InventoryRecord) any{
		"bare list": func(r domain.InventoryRecord) any { return []domain.InventoryRecord{r} },
		"data list": func(r domain.InventoryRecord) any { return map[string]any{"data": []domain.InventoryRecord{r}} },
		"wrapped list": func(r domain.InventoryRecord) any {
			return map[string]any{"data": map[string]any{"inventories": []domain.InventoryRecord{r}}}
		},
	}
	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			repo := newMockCatalogRepo()
			saga := newTestSaga(repo, &mockInventory{createReply: reply}, 0)

			res, err := saga.Create(context.Background(), lampInput(intPtr(5)))
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeSuccessWithInventory, res.Outcome)
			require.NotNil(t, res.Inventory)
			assert.Equal(t, "PROD-"+res.Product.ID, res.Inventory.SKU)
			assert.Empty(t, res.Warning)
		})
	}
}

func TestCreate_UnusableInventoryReplyKeepsProduct(t *testing.T) {
	replies := []string{`{"status":"ok"}`, `"created"`, `{"data":{"inventory":{"quantity":5}}}`, `{"sku":"PROD-someone-else"}`}
	for _, reply := range replies {
		repo := newMockCatalogRepo()
		inv := &mockInventory{reply: json.RawMessage(reply)}
		saga := newTestSaga(repo, inv, 0)

		res, err := saga.Create(context.Background(), lampInput(intPtr(2)))
		require.NoError(t, err, reply)
		assert.Equal(t, domain.OutcomeSuccessWithUnknownInventory, res.Outcome, reply)
		assert.Equal(t, "Inventory service response was invalid", res.Warning)
		assert.Nil(t, res.Inventory)
		assert.Equal(t, 1, repo.productCount())
	}
}

func TestCreate_InventoryFailureCompensates(t *testing.T) {
	repo := newMockCatalogRepo()
	inv := &mockInventory{err: errInventoryDown}
	saga := newTestSaga(repo, inv, 0)

	res, err := saga.Create(context.Background(), lampInput(intPtr(5)))
	require.Error(t, err)
	assert.Equal(t, domain.OutcomeCompensatedFailure, res.Outcome)
	assert.Equal(t, domain.SagaCompensated, res.State)
	assert.Zero(t, repo.productCount())

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindServiceUnavailable, de.Kind)
	assert.Equal(t, 503, de.Code())
	assert.True(t, de.Kind.Retryable())
	assert.Equal(t, "inventory-service", de.Details["service"])
	assert.NotEmpty(t, de.Details["productId"])
	assert.Contains(t, de.Details["cause"], "connection refused")
	assert.ErrorIs(t, err, errInventoryDown)
}

func TestCreate_InventoryTimeoutCompensates(t *testing.T) {
	repo := newMockCatalogRepo()
	inv := &mockInventory{block: true}
	saga := newTestSaga(repo, inv, 20*time.Millisecond)

	start := time.Now()
	res, err := saga.Create(context.Background(), lampInput(intPtr(1)))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, domain.IsKind(err, domain.KindServiceUnavailable))
	assert.Equal(t, domain.OutcomeCompensatedFailure, res.Outcome)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, repo.productCount())
}

func TestCreate_CompensationFails(t *testing.T) {
	repo := newMockCatalogRepo()
	repo.deleteErr = errors.New("store offline")
	inv := &mockInventory{err: errInventoryDown}
	saga := newTestSaga(repo, inv, 0)

	res, err := saga.Create(context.Background(), lampInput(intPtr(5)))
	require.Error(t, err)
	assert.Equal(t, domain.OutcomeUncompensatedFailure, res.Outcome)
	assert.Equal(t, domain.SagaFailedNeedsCleanup, res.State)
	assert.Equal(t, 1, repo.productCount())

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindInternal, de.Kind)
	assert.Equal(t, true, de.Details["requiresManualCleanup"])
	assert.Equal(t, res.Product.ID, de.Details["productId"])
	assert.Contains(t, de.Details["inventoryError"], "connection refused")
}

func TestCreate_CategoryFailureAborts(t *testing.T) {
	repo := newMockCatalogRepo()
	inv := &mockInventory{}
	saga := newTestSaga(repo, inv, 0)

	in := lampInput(intPtr(5))
	in.CategoryName = ""
	in.CategoryID = "missing"
	res, err := saga.Create(context.Background(), in)
	assert.Nil(t, res)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	in.CategoryID = ""
	_, err = saga.Create(context.Background(), in)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	assert.Zero(t, repo.productCount())
	assert.Zero(t, inv.callCount())
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	repo := newMockCatalogRepo()
	saga := newTestSaga(repo, &mockInventory{}, 0)

	in := lampInput(nil)
	in.Name = "  <script></script> "
	_, err := saga.Create(context.Background(), in)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	in = lampInput(nil)
	in.Price = decimal.NewFromInt(-1)
	_, err = saga.Create(context.Background(), in)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Zero(t, repo.productCount())
}

func TestCreate_SanitizesText(t *testing.T) {
	repo := newMockCatalogRepo()
	saga := newTestSaga(repo, &mockInventory{}, 0)

	in := lampInput(nil)
	in.Name = "<b>Desk & Lamp</b>"
	in.IsActive = new(bool)
	res, err := saga.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Desk & Lamp", res.Product.Name)
	assert.False(t, res.Product.IsActive)
}

func TestCreate_ConcurrentFailuresLeaveNoProducts(t *testing.T) {
	repo := newMockCatalogRepo()
	repo.addCategory("Lighting")
	inv := &mockInventory{err: errInventoryDown}
	saga := newTestSaga(repo, inv, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := saga.Create(context.Background(), lampInput(intPtr(1)))
			if assert.Error(t, err) {
				assert.Equal(t, domain.OutcomeCompensatedFailure, res.Outcome)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, repo.productCount())
	assert.Equal(t, 50, inv.callCount())
}
