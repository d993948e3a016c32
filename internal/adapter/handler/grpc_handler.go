package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/catalog-service/internal/adapter/rpc"
	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
)

const catalogServiceName = "catalog.CatalogService"

type IDRequest struct {
	ID string `json:"id"`
}

type UpdateRequest struct {
	ID string `json:"id"`
	domain.ProductUpdateInput
}

type DeleteRequest struct {
	ID         string `json:"id"`
	SoftDelete *bool  `json:"softDelete,omitempty"`
}

type DeactivateRequest struct {
	SKU string `json:"sku"`
}

// GRPCHandler serves the catalog operations over gRPC. Every reply is an
// envelope; failures are reported inside it rather than as gRPC statuses.
type GRPCHandler struct {
	products     *service.ProductService
	deactivation *service.DeactivationHandler
	logger       *zap.Logger
}

func NewGRPCHandler(products *service.ProductService, deactivation *service.DeactivationHandler, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{products: products, deactivation: deactivation, logger: logger}
}

// NewGRPCServer returns a server with h registered and the JSON codec forced.
func NewGRPCServer(h *GRPCHandler, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(rpc.Codec{}),
		grpc.ChainUnaryInterceptor(rpc.UnaryServerTracing()),
	}, opts...)
	srv := grpc.NewServer(opts...)
	h.Register(srv)
	return srv
}

func (h *GRPCHandler) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&grpc.ServiceDesc{
		ServiceName: catalogServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			unary("Create", h.Create),
			unary("FindAll", h.FindAll),
			unary("FindOne", h.FindOne),
			unary("Update", h.Update),
			unary("Delete", h.Delete),
			unary("Filter", h.Filter),
			unary("Deactivate", h.Deactivate),
		},
	}, h)
}

// unary adapts a typed method to grpc.MethodDesc, running interceptors the
// way generated code does. A request that fails to decode still passes
// through the interceptors so it is traced and logged like any other call.
func unary[Req any](name string, fn func(context.Context, *Req) (any, error)) grpc.MethodDesc {
	fullMethod := "/" + catalogServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			handle := func(ctx context.Context, req any) (any, error) {
				return fn(ctx, req.(*Req))
			}
			if err := dec(req); err != nil {
				de := domain.Validationf("Invalid request message").Wrap(err).
					WithDetails(map[string]any{"cause": err.Error()})
				handle = func(context.Context, any) (any, error) {
					return de.Envelope(time.Now()), nil
				}
			}
			if interceptor == nil {
				return handle(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: nil, FullMethod: fullMethod}
			return interceptor(ctx, req, info, handle)
		},
	}
}

func (h *GRPCHandler) Create(ctx context.Context, req *domain.ProductCreateInput) (any, error) {
	res, err := h.products.Create(ctx, *req)
	if err != nil {
		return h.failure("Create", err), nil
	}
	return createdEnvelope(res), nil
}

func (h *GRPCHandler) FindAll(ctx context.Context, _ *struct{}) (any, error) {
	list, err := h.products.FindAll(ctx)
	if err != nil {
		return h.failure("FindAll", err), nil
	}
	return listEnvelope(list, false), nil
}

func (h *GRPCHandler) FindOne(ctx context.Context, req *IDRequest) (any, error) {
	p, err := h.products.FindOne(ctx, req.ID)
	if err != nil {
		return h.failure("FindOne", err), nil
	}
	return productEnvelope(p), nil
}

func (h *GRPCHandler) Update(ctx context.Context, req *UpdateRequest) (any, error) {
	p, err := h.products.Update(ctx, req.ID, req.ProductUpdateInput)
	if err != nil {
		return h.failure("Update", err), nil
	}
	return updatedEnvelope(p), nil
}

func (h *GRPCHandler) Delete(ctx context.Context, req *DeleteRequest) (any, error) {
	soft := req.SoftDelete == nil || *req.SoftDelete
	p, err := h.products.Delete(ctx, req.ID, soft)
	if err != nil {
		return h.failure("Delete", err), nil
	}
	return deletedEnvelope(p, soft), nil
}

func (h *GRPCHandler) Filter(ctx context.Context, req *service.FilterCriteria) (any, error) {
	list, err := h.products.Filter(ctx, *req)
	if err != nil {
		return h.failure("Filter", err), nil
	}
	return listEnvelope(list, true), nil
}

// Deactivate is the request/response twin of the inventory deletion event.
func (h *GRPCHandler) Deactivate(ctx context.Context, req *DeactivateRequest) (any, error) {
	p, err := h.deactivation.Deactivate(ctx, req.SKU)
	if err != nil {
		return h.failure("Deactivate", err), nil
	}
	return domain.OK("Product deactivated successfully", p), nil
}

func (h *GRPCHandler) failure(method string, err error) domain.ErrorEnvelope {
	de := domain.AsError(err, "Internal server error")
	if de.Kind == domain.KindInternal {
		h.logger.Error("grpc call failed", zap.String("method", method), zap.Error(err))
	}
	return de.Envelope(time.Now())
}
