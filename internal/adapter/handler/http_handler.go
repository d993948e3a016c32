package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
)

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	products   *service.ProductService
	categories *service.CategoryService
	logger     *zap.Logger
}

type CategoryHTTPRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewHTTPHandler(products *service.ProductService, categories *service.CategoryService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{products: products, categories: categories, logger: logger}
}

// Routes mounts every endpoint on a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tracingMiddleware)
	r.Use(requestLogger(h.logger))
	r.Use(recoverer(h.logger))

	r.Get("/health", h.HealthCheck)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.FindAllProducts)
		r.Post("/filter", h.FilterProducts)
		r.Get("/{id}", h.FindOneProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, domain.NewError(domain.KindNotFound, "Route "+r.Method+" "+r.URL.Path+" not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, domain.Validationf("Method %s not allowed on %s", r.Method, r.URL.Path))
	})
	return r
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.products.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdEnvelope(res))
}

func (h *HTTPHandler) FindAllProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.FindAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(list, false))
}

func (h *HTTPHandler) FindOneProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productEnvelope(p))
}

func (h *HTTPHandler) FilterProducts(w http.ResponseWriter, r *http.Request) {
	var req service.FilterCriteria
	if !h.decode(w, r, &req) {
		return
	}

	list, err := h.products.Filter(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope(list, true))
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateInput
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedEnvelope(p))
}

// DeleteProduct soft deletes unless ?soft=false is given.
func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	soft := true
	if raw := r.URL.Query().Get("soft"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, domain.Validationf("Query parameter soft must be a boolean").
				WithDetails(map[string]any{"field": "soft"}))
			return
		}
		soft = v
	}

	p, err := h.products.Delete(r.Context(), chi.URLParam(r, "id"), soft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedEnvelope(p, soft))
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.categories.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryEnvelope("Category created successfully", c))
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.categories.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesEnvelope(cs))
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryEnvelope("Category retrieved successfully", c))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": domain.ServiceName})
}

// decode reads a JSON body into v. It writes the error response and returns
// false when the body is unusable.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		h.writeError(w, r, domain.Validationf("Request body is required"))
		return false
	}
	h.writeError(w, r, domain.Validationf("Invalid request body").Wrap(err).
		WithDetails(map[string]any{"cause": err.Error()}))
	return false
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	de := domain.AsError(err, "Internal server error")
	if de.Kind == domain.KindInternal {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, de.Code(), de.Envelope(time.Now()))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
