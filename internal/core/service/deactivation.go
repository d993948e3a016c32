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

var ErrNoProductForSKU = errors.New("no product matches sku")

// DeactivationHandler reacts to inventory records being deleted remotely.
type DeactivationHandler struct {
	repo   port.CatalogRepository
	logger *zap.Logger
}

func NewDeactivationHandler(repo port.CatalogRepository, logger *zap.Logger) *DeactivationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeactivationHandler{repo: repo, logger: logger}
}

// Handle deactivates the product matching sku. Events have no reply, so an
// unknown or empty sku is only logged. The returned error is non-nil only for
// failures worth retrying; deactivation is idempotent so a retry is safe.
func (h *DeactivationHandler) Handle(ctx context.Context, sku string) error {
	product, err := h.Deactivate(ctx, sku)
	switch {
	case err == nil:
		h.logger.Info("product deactivated", zap.String("sku", sku), zap.String("product_id", product.ID))
		return nil
	case domain.IsKind(err, domain.KindNotFound), domain.IsKind(err, domain.KindValidation):
		h.logger.Warn("inventory deletion ignored", zap.String("sku", sku), zap.Error(err))
		return nil
	default:
		h.logger.Error("product deactivation failed", zap.String("sku", sku), zap.Error(err))
		return err
	}
}

// Deactivate sets active=false on the product whose name contains sku and
// returns it. Matching is by name because products carry no sku column.
// Applying it to an inactive product is a no-op.
func (h *DeactivationHandler) Deactivate(ctx context.Context, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, domain.Validationf("SKU is required").WithDetails(map[string]any{"field": "sku"})
	}

	product, err := h.repo.FindProductByNameContains(ctx, sku)
	if errors.Is(err, port.ErrNotFound) {
		return nil, domain.NotFound("Product", sku).Wrap(ErrNoProductForSKU)
	}
	if err != nil {
		return nil, domain.Internal("Failed to find product for sku", fmt.Errorf("find product for sku %s: %w", sku, err))
	}
	if !product.IsActive {
		return product, nil
	}

	inactive := false
	updated, err := h.repo.UpdateProduct(ctx, product.ID, domain.ProductChanges{IsActive: &inactive})
	if err != nil {
		return nil, domain.Internal("Failed to deactivate product", fmt.Errorf("deactivate product %s: %w", product.ID, err))
	}
	return updated, nil
}
