package port

import (
	"context"
	"encoding/json"

	"github.com/rl1809/catalog-service/internal/core/domain"
)

// InventoryClient talks to the remote inventory service. Replies are returned
// undecoded because the remote contract allows several layouts.
type InventoryClient interface {
	// RequestCreate asks the inventory service to create a record.
	RequestCreate(ctx context.Context, record domain.InventoryRecord) (json.RawMessage, error)

	// RequestFindAll fetches every inventory record.
	RequestFindAll(ctx context.Context) (json.RawMessage, error)

	// RequestFindOne fetches the record of a single SKU.
	RequestFindOne(ctx context.Context, sku string) (json.RawMessage, error)
}
