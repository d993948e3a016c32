package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

const (
	DefaultInventoryTimeout = 5 * time.Second

	inventoryServiceName    = "inventory-service"
	unknownInventoryWarning = "Inventory service response was invalid"

	compensationTimeout = 5 * time.Second
)

var ErrInventoryMismatch = errors.New("inventory reply does not describe the requested sku")

// ProductSaga creates a product in the catalog and its inventory record in
// the inventory service. When the inventory call fails the product is
// deleted again.
type ProductSaga struct {
	repo      port.CatalogRepository
	resolver  *CategoryResolver
	inventory port.InventoryClient
	logger    *zap.Logger
	tracer    trace.Tracer
	timeout   time.Duration
}

func NewProductSaga(repo port.CatalogRepository, resolver *CategoryResolver, inventory port.InventoryClient, logger *zap.Logger, timeout time.Duration) *ProductSaga {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultInventoryTimeout
	}
	return &ProductSaga{
		repo:      repo,
		resolver:  resolver,
		inventory: inventory,
		logger:    logger,
		tracer:    otel.Tracer("catalog-service/saga"),
		timeout:   timeout,
	}
}

// Create runs the saga. The returned error is always a *domain.Error. The
// result is nil when the saga stopped before the product was written.
func (s *ProductSaga) Create(ctx context.Context, in domain.ProductCreateInput) (*domain.CreationResult, error) {
	ctx, span := s.tracer.Start(ctx, "ProductSaga.Create")
	defer span.End()

	saga := domain.NewCreationSaga()

	product, err := s.buildProduct(ctx, in)
	if err != nil {
		span.SetStatus(codes.Error, "aborted before product write")
		return nil, err
	}

	created, err := s.persist(ctx, product)
	if err != nil {
		span.SetStatus(codes.Error, "product write failed")
		return nil, err
	}
	saga.ProductID = created.ID
	s.advance(saga, domain.SagaProductCommitted)
	span.SetAttributes(attribute.String("product.id", created.ID))

	log := s.logger.With(zap.String("product_id", created.ID))

	if in.Quantity == nil || *in.Quantity <= 0 {
		s.advance(saga, domain.SagaDone)
		log.Info("product created without inventory")
		return &domain.CreationResult{
			Outcome: domain.OutcomeSuccessWithoutInventory,
			State:   saga.State,
			Product: created,
		}, nil
	}

	s.advance(saga, domain.SagaInventoryRequested)
	sku := domain.SKUFor(created.ID)
	record, invErr := s.requestInventory(ctx, domain.InventoryRecord{SKU: sku, Quantity: *in.Quantity})

	switch {
	case invErr == nil:
		s.advance(saga, domain.SagaDone)
		log.Info("product created with inventory", zap.String("sku", sku))
		return &domain.CreationResult{
			Outcome:   domain.OutcomeSuccessWithInventory,
			State:     saga.State,
			Product:   created,
			Inventory: record,
		}, nil

	case errors.Is(invErr, ErrInventoryMismatch):
		// The call went through; only the reply is unusable. The product stands on its own.
		s.advance(saga, domain.SagaDone)
		log.Warn("inventory reply unusable, keeping product", zap.String("sku", sku))
		return &domain.CreationResult{
			Outcome: domain.OutcomeSuccessWithUnknownInventory,
			State:   saga.State,
			Product: created,
			Warning: unknownInventoryWarning,
		}, nil
	}

	log.Warn("inventory request failed, compensating", zap.String("sku", sku), zap.Error(invErr))
	span.RecordError(invErr)

	if cerr := s.compensate(ctx, created.ID); cerr != nil {
		s.advance(saga, domain.SagaFailedNeedsCleanup)
		span.SetStatus(codes.Error, "compensation failed")
		log.Error("compensation failed, product requires manual cleanup",
			zap.NamedError("inventory_error", invErr), zap.Error(cerr))
		return &domain.CreationResult{
				Outcome: domain.OutcomeUncompensatedFailure,
				State:   saga.State,
				Product: created,
			}, domain.Internal("Failed to create inventory and cleanup product", cerr).
				WithDetails(map[string]any{
					"productId":             created.ID,
					"requiresManualCleanup": true,
					"inventoryError":        invErr.Error(),
				})
	}

	s.advance(saga, domain.SagaCompensated)
	span.SetStatus(codes.Error, "compensated")
	log.Info("product creation compensated")
	return &domain.CreationResult{
			Outcome: domain.OutcomeCompensatedFailure,
			State:   saga.State,
		}, domain.NewError(domain.KindServiceUnavailable, "Inventory service unavailable, product creation was rolled back").
			Wrap(invErr).
			WithDetails(map[string]any{
				"service":   inventoryServiceName,
				"productId": created.ID,
				"cause":     invErr.Error(),
			})
}

func (s *ProductSaga) buildProduct(ctx context.Context, in domain.ProductCreateInput) (domain.Product, error) {
	name := cleanText(in.Name)
	if name == "" {
		return domain.Product{}, domain.Validationf("Product name is required").
			WithDetails(map[string]any{"field": "name"})
	}
	if in.Price.IsNegative() {
		return domain.Product{}, domain.Validationf("Product price must not be negative").
			WithDetails(map[string]any{"field": "price"})
	}

	ctx, span := s.tracer.Start(ctx, "ProductSaga.ResolveCategory")
	defer span.End()
	categoryID, err := s.resolver.Resolve(ctx, in.CategoryID, in.CategoryName)
	if err != nil {
		span.RecordError(err)
		return domain.Product{}, domain.AsError(err, "Failed to resolve category")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return domain.Product{
		Name:        name,
		Description: cleanText(in.Description),
		Price:       in.Price,
		IsActive:    active,
		CategoryID:  categoryID,
	}, nil
}

func (s *ProductSaga) persist(ctx context.Context, product domain.Product) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductSaga.PersistProduct")
	defer span.End()

	created, err := s.repo.CreateProduct(ctx, product)
	if errors.Is(err, port.ErrConstraintViolation) {
		span.RecordError(err)
		return nil, domain.NewError(domain.KindConflict, "Product violates a catalog constraint").Wrap(err).
			WithDetails(map[string]any{"categoryId": product.CategoryID})
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error("create product failed", zap.String("product_name", product.Name), zap.Error(err))
		return nil, domain.Internal("Failed to create product", err)
	}
	return created, nil
}

// requestInventory bounds the remote call by the saga timeout. A reply that
// arrives but cannot be read yields ErrInventoryMismatch.
func (s *ProductSaga) requestInventory(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	ctx, span := s.tracer.Start(ctx, "ProductSaga.RequestInventory",
		trace.WithAttributes(attribute.String("inventory.sku", record.SKU)))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.inventory.RequestCreate(callCtx, record)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("request inventory for %s: %w", record.SKU, err)
	}

	got := domain.FindInventoryRecord(raw, record.SKU)
	if got == nil {
		return nil, ErrInventoryMismatch
	}
	return got, nil
}

// compensate deletes the product. It runs even when the caller has gone away.
func (s *ProductSaga) compensate(ctx context.Context, productID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "ProductSaga.Compensate")
	defer span.End()

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete product %s: %w", productID, err)
	}
	return nil
}

func (s *ProductSaga) advance(saga *domain.CreationSaga, next domain.SagaState) {
	if err := saga.Advance(next); err != nil {
		s.logger.Error("saga transition rejected", zap.String("product_id", saga.ProductID), zap.Error(err))
	}
}
