package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

const inventoryUnavailableWarning = "Inventory data is unavailable"

// InventoryAggregator joins products with their inventory records. It never
// fails a read: inventory it cannot obtain is reported as unknown.
type InventoryAggregator struct {
	inventory port.InventoryClient
	logger    *zap.Logger
	tracer    trace.Tracer
	timeout   time.Duration
}

func NewInventoryAggregator(inventory port.InventoryClient, logger *zap.Logger, timeout time.Duration) *InventoryAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultInventoryTimeout
	}
	return &InventoryAggregator{
		inventory: inventory,
		logger:    logger,
		tracer:    otel.Tracer("catalog-service/aggregator"),
		timeout:   timeout,
	}
}

// AttachAll joins products with one bulk inventory query. The returned
// warning is non-empty when inventory data could not be obtained.
func (a *InventoryAggregator) AttachAll(ctx context.Context, products []domain.Product) ([]domain.ProductWithInventory, string) {
	out := make([]domain.ProductWithInventory, len(products))
	for i, p := range products {
		out[i] = domain.ProductWithInventory{Product: p}
	}
	if len(products) == 0 {
		return out, ""
	}

	ctx, span := a.tracer.Start(ctx, "InventoryAggregator.AttachAll",
		trace.WithAttributes(attribute.Int("products.count", len(products))))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.inventory.RequestFindAll(callCtx)
	if err != nil {
		span.RecordError(err)
		a.logger.Warn("inventory lookup failed", zap.Int("products", len(products)), zap.Error(err))
		return out, inventoryUnavailableWarning
	}

	if shape, _, _ := domain.ClassifyInventoryReply(raw); shape == domain.ShapeUnknown {
		a.logger.Warn("inventory reply in unrecognised shape", zap.Int("products", len(products)))
		return out, inventoryUnavailableWarning
	}

	records := domain.NormalizeInventoryList(raw)

	bySKU := make(map[string]*domain.InventoryRecord, len(records))
	for i := range records {
		bySKU[records[i].SKU] = &records[i]
	}
	for i := range out {
		out[i].Inventory = bySKU[domain.SKUFor(out[i].ID)]
	}
	return out, ""
}

// Attach joins a single product with its inventory record.
func (a *InventoryAggregator) Attach(ctx context.Context, product domain.Product) domain.ProductWithInventory {
	sku := domain.SKUFor(product.ID)
	ctx, span := a.tracer.Start(ctx, "InventoryAggregator.Attach",
		trace.WithAttributes(attribute.String("inventory.sku", sku)))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	joined := domain.ProductWithInventory{Product: product}
	raw, err := a.inventory.RequestFindOne(callCtx, sku)
	if err != nil {
		span.RecordError(err)
		a.logger.Warn("inventory lookup failed", zap.String("sku", sku), zap.Error(err))
		return joined
	}
	joined.Inventory = domain.FindInventoryRecord(raw, sku)
	return joined
}
