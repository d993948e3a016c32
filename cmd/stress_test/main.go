package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/adapter/storage"
	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
)

const (
	categoryName  = "stress-category"
	totalRequests = 50
	failEvery     = 5 // every 5th inventory call fails
	quantity      = 10
)

// flakyInventory answers create requests like the inventory service, failing
// every failEvery-th call.
type flakyInventory struct {
	calls atomic.Int32
}

func (f *flakyInventory) RequestCreate(_ context.Context, record domain.InventoryRecord) (json.RawMessage, error) {
	if f.calls.Add(1)%failEvery == 0 {
		return nil, errors.New("inventory unavailable")
	}
	time.Sleep(2 * time.Millisecond)
	return json.Marshal(map[string]any{"data": record})
}

func (f *flakyInventory) RequestFindAll(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[]}`), nil
}

func (f *flakyInventory) RequestFindOne(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"data":null}`), nil
}

func main() {
	ctx := context.Background()
	logger := zap.NewNop()

	// Initialize store and services
	store := storage.NewMemoryAdapter()
	inv := &flakyInventory{}
	resolver := service.NewCategoryResolver(store, logger)
	saga := service.NewProductSaga(store, resolver, inv, logger, time.Second)

	// Counters
	var successCount atomic.Int32
	var compensatedCount atomic.Int32
	var otherCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			q := quantity
			res, err := saga.Create(ctx, domain.ProductCreateInput{
				Name:         fmt.Sprintf("stress-product-%03d", n),
				Price:        decimal.NewFromInt(int64(n)),
				Quantity:     &q,
				CategoryName: categoryName,
			})
			switch {
			case err == nil && res.Outcome == domain.OutcomeSuccessWithInventory:
				successCount.Add(1)
			case domain.IsKind(err, domain.KindServiceUnavailable):
				compensatedCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	compensated := compensatedCount.Load()
	other := otherCount.Load()
	expectedFailures := int32(totalRequests / failEvery)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Created:          %d\n", success)
	fmt.Printf("Compensated:      %d\n", compensated)
	fmt.Printf("Unexpected:       %d\n", other)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if compensated == expectedFailures && success == int32(totalRequests)-expectedFailures && other == 0 {
		fmt.Printf("PASS: %d products created, %d compensated\n", success, compensated)
	} else {
		fmt.Printf("FAIL: Expected %d created/%d compensated, got %d/%d (%d unexpected)\n",
			int32(totalRequests)-expectedFailures, expectedFailures, success, compensated, other)
	}

	// Verify no orphaned products survived compensation
	products, err := store.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		log.Fatalf("failed to list products: %v", err)
	}
	fmt.Printf("Stored Products:  %d\n", len(products))
	if int32(len(products)) == success {
		fmt.Println("PASS: No orphaned products")
	} else {
		fmt.Printf("FAIL: Expected %d stored products, got %d\n", success, len(products))
	}

	// Verify concurrent resolution produced a single category
	categories, err := store.ListCategories(ctx)
	if err != nil {
		log.Fatalf("failed to list categories: %v", err)
	}
	if len(categories) == 1 {
		fmt.Println("PASS: One category auto-created")
	} else {
		fmt.Printf("FAIL: Expected 1 category, got %d\n", len(categories))
	}
}
