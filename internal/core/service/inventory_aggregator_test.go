package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-service/internal/core/domain"
)

func products(ids ...string) []domain.Product {
	out := make([]domain.Product, len(ids))
	for i, id := range ids {
		out[i] = domain.Product{ID: id, Name: "p" + id, IsActive: true}
	}
	return out
}

func TestAttachAll_JoinsBySKU(t *testing.T) {
	inv := &mockInventory{reply: json.RawMessage(`{"data":{"inventories":[
		{"sku":"PROD-2","quantity":7,"reserved":1},
		{"sku":"PROD-1","quantity":3,"reserved":0},
		{"sku":"PROD-99","quantity":1,"reserved":0}
	]}}`)}
	a := NewInventoryAggregator(inv, nil, 0)

	joined, warning := a.AttachAll(context.Background(), products("1", "2", "3"))
	assert.Empty(t, warning)
	require.Len(t, joined, 3)
	require.NotNil(t, joined[0].Inventory)
	assert.Equal(t, 3, joined[0].Inventory.Quantity)
	require.NotNil(t, joined[1].Inventory)
	assert.Equal(t, 1, joined[1].Inventory.Reserved)
	assert.Nil(t, joined[2].Inventory)
	assert.Equal(t, 1, inv.callCount())
}

func TestAttachAll_InventoryFailure(t *testing.T) {
	for _, inv := range []*mockInventory{
		{err: errInventoryDown},
		{reply: json.RawMessage(`"not json we know"`)},
		{reply: json.RawMessage(`{"data":{"inventory":"nope"},"status":1}`)},
	} {
		a := NewInventoryAggregator(inv, nil, 0)

		joined, warning := a.AttachAll(context.Background(), products("1", "2"))
		require.Len(t, joined, 2)
		for _, p := range joined {
			assert.Nil(t, p.Inventory)
		}
		if inv.err != nil {
			assert.NotEmpty(t, warning)
		}
	}
}

func TestAttachAll_Timeout(t *testing.T) {
	a := NewInventoryAggregator(&mockInventory{block: true}, nil, 10*time.Millisecond)

	joined, warning := a.AttachAll(context.Background(), products("1"))
	require.Len(t, joined, 1)
	assert.Nil(t, joined[0].Inventory)
	assert.NotEmpty(t, warning)
}

func TestAttachAll_EmptyMakesNoCall(t *testing.T) {
	inv := &mockInventory{}
	a := NewInventoryAggregator(inv, nil, 0)

	joined, warning := a.AttachAll(context.Background(), nil)
	assert.Empty(t, joined)
	assert.Empty(t, warning)
	assert.Zero(t, inv.callCount())
}

func TestAttach_Single(t *testing.T) {
	want := domain.InventoryRecord{SKU: "PROD-1", Quantity: 4, Reserved: 2}
	cases := []struct {
		name  string
		reply string
	}{
		{"wrapped list", `{"data":{"inventories":[{"sku":"PROD-7","quantity":1},{"sku":"PROD-1","quantity":4,"reserved":2}]}}`},
		{"wrapped record", `{"data":{"inventory":{"sku":"PROD-1","quantity":4,"reserved":2}}}`},
		{"data list", `{"data":[{"sku":"PROD-1","quantity":4,"reserved":2}]}`},
		{"data record", `{"data":{"sku":"PROD-1","quantity":4,"reserved":2}}`},
		{"bare list", `[{"sku":"PROD-1","quantity":4,"reserved":2}]`},
		{"bare record", `{"sku":"PROD-1","quantity":4,"reserved":2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewInventoryAggregator(&mockInventory{reply: json.RawMessage(tc.reply)}, nil, 0)

			joined := a.Attach(context.Background(), products("1")[0])
			require.NotNil(t, joined.Inventory)
			assert.Equal(t, want, *joined.Inventory)
		})
	}
}

func TestAttach_InventoryFailure(t *testing.T) {
	a := NewInventoryAggregator(&mockInventory{err: errInventoryDown}, nil, 0)

	joined := a.Attach(context.Background(), products("1")[0])
	assert.Nil(t, joined.Inventory)
	assert.Equal(t, "1", joined.ID)
}

func TestAttach_IgnoresOtherSKU(t *testing.T) {
	inv := &mockInventory{reply: json.RawMessage(`{"sku":"PROD-2","quantity":4}`)}
	a := NewInventoryAggregator(inv, nil, 0)

	joined := a.Attach(context.Background(), products("1")[0])
	assert.Nil(t, joined.Inventory)

	inv.reply = json.RawMessage(`[{"sku":"PROD-2","quantity":4}]`)
	joined = a.Attach(context.Background(), products("1")[0])
	assert.Nil(t, joined.Inventory)
}
