package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	CategoryID  string          `json:"categoryId"`
	Category    *Category       `json:"category,omitempty"`
}

// ProductWithInventory is a product joined with its inventory record.
// A nil Inventory means the inventory state is unknown.
type ProductWithInventory struct {
	Product
	Inventory *InventoryRecord `json:"inventory"`
}

// ProductCreateInput is a decoded product creation request.
type ProductCreateInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     *int            `json:"quantity,omitempty"`
	IsActive     *bool           `json:"isActive,omitempty"`
	CategoryID   string          `json:"categoryId,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
}

// ProductUpdateInput is a partial product update; nil fields are left untouched.
type ProductUpdateInput struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	IsActive     *bool            `json:"isActive,omitempty"`
	CategoryID   string           `json:"categoryId,omitempty"`
	CategoryName string           `json:"categoryName,omitempty"`
}

// ProductChanges is the set of column changes applied by the store.
type ProductChanges struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	IsActive    *bool
	CategoryID  *string
}

func (c ProductChanges) Empty() bool {
	return c.Name == nil && c.Description == nil && c.Price == nil && c.IsActive == nil && c.CategoryID == nil
}

// Apply returns p with the changes applied.
func (c ProductChanges) Apply(p Product) Product {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.IsActive != nil {
		p.IsActive = *c.IsActive
	}
	if c.CategoryID != nil {
		p.CategoryID = *c.CategoryID
	}
	return p
}

// ProductFilter is a conjunction of optional criteria. Empty fields are ignored.
type ProductFilter struct {
	CategoryID   string           `json:"categoryId,omitempty"`
	CategoryName string           `json:"categoryName,omitempty"`
	Name         string           `json:"name,omitempty"`
	MinPrice     *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice     *decimal.Decimal `json:"maxPrice,omitempty"`
	ActiveOnly   bool             `json:"-"`
}

// Matches reports whether p satisfies the filter. Category name matching
// needs p.Category to be populated.
func (f ProductFilter) Matches(p Product, fold func(string) string) bool {
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.CategoryName != "" {
		if p.Category == nil || !containsFold(p.Category.Name, f.CategoryName, fold) {
			return false
		}
	}
	if f.Name != "" && !containsFold(p.Name, f.Name, fold) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

func containsFold(s, substr string, fold func(string) string) bool {
	return strings.Contains(fold(s), fold(substr))
}
