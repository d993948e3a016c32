package handler

import (
	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/core/service"
)

// Envelope builders shared by the HTTP and gRPC transports.

func createdEnvelope(res *domain.CreationResult) domain.Envelope {
	env := domain.OK("Product created successfully", domain.ProductWithInventory{
		Product:   *res.Product,
		Inventory: res.Inventory,
	})
	env.Warning = res.Warning
	return env
}

func listEnvelope(list *service.ProductList, filtered bool) domain.Envelope {
	message := "Products retrieved successfully"
	switch {
	case list.Count == 0 && filtered:
		message = "No products match the given filters"
	case list.Count == 0:
		message = "No products found"
	}
	env := domain.OK(message, list)
	env.Warning = list.Warning
	return env
}

func productEnvelope(p *domain.ProductWithInventory) domain.Envelope {
	return domain.OK("Product retrieved successfully", p)
}

func updatedEnvelope(p *domain.Product) domain.Envelope {
	return domain.OK("Product updated successfully", p)
}

func deletedEnvelope(p *domain.Product, soft bool) domain.Envelope {
	if soft {
		return domain.OK("Product deactivated successfully", p)
	}
	return domain.OK("Product deleted successfully", p)
}

func categoryEnvelope(message string, c *domain.Category) domain.Envelope {
	return domain.OK(message, c)
}

func categoriesEnvelope(cs []domain.Category) domain.Envelope {
	if cs == nil {
		cs = []domain.Category{}
	}
	return domain.OK("Categories retrieved successfully", map[string]any{"categories": cs, "count": len(cs)})
}
