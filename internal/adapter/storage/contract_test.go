package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// testRepositoryContract exercises every CatalogRepository backend the same
// way. Names carry a per-run prefix so shared databases need no cleanup.
func testRepositoryContract(t *testing.T, repo port.CatalogRepository) {
	ctx := context.Background()
	prefix := fmt.Sprintf("t%d", time.Now().UnixNano())

	x, err := repo.CreateCategory(ctx, domain.Category{Name: prefix + "-x", Description: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, x.ID)
	y, err := repo.CreateCategory(ctx, domain.Category{Name: prefix + "-y"})
	require.NoError(t, err)

	t.Run("category uniqueness", func(t *testing.T) {
		_, err := repo.CreateCategory(ctx, domain.Category{Name: prefix + "-x"})
		assert.ErrorIs(t, err, port.ErrConstraintViolation)
	})

	t.Run("category lookups", func(t *testing.T) {
		got, err := repo.GetCategory(ctx, x.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Description)

		got, err = repo.GetCategoryByName(ctx, prefix+"-y")
		require.NoError(t, err)
		assert.Equal(t, y.ID, got.ID)

		_, err = repo.GetCategoryByName(ctx, strings.ToUpper(prefix+"-y"))
		assert.ErrorIs(t, err, port.ErrNotFound)
		_, err = repo.GetCategory(ctx, "missing-category")
		assert.ErrorIs(t, err, port.ErrNotFound)

		all, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		var names []string
		for _, c := range all {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, prefix+"-x")
		assert.Contains(t, names, prefix+"-y")
	})

	_, err = repo.CreateProduct(ctx, domain.Product{Name: prefix + "-orphan", CategoryID: "missing-category"})
	assert.ErrorIs(t, err, port.ErrConstraintViolation)

	a, err := repo.CreateProduct(ctx, domain.Product{
		Name: prefix + "-Alpha", Description: "a", Price: *dec("10"), IsActive: true, CategoryID: x.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	b, err := repo.CreateProduct(ctx, domain.Product{
		Name: prefix + "-Beta", Price: *dec("50"), IsActive: true, CategoryID: y.ID,
	})
	require.NoError(t, err)
	_, err = repo.CreateProduct(ctx, domain.Product{
		Name: prefix + "-Gamma", Price: *dec("30"), IsActive: false, CategoryID: x.ID,
	})
	require.NoError(t, err)

	t.Run("get product", func(t *testing.T) {
		got, err := repo.GetProduct(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, prefix+"-Alpha", got.Name)
		assert.True(t, got.Price.Equal(decimal.NewFromInt(10)))
		require.NotNil(t, got.Category)
		assert.Equal(t, prefix+"-x", got.Category.Name)

		_, err = repo.GetProduct(ctx, "missing-product")
		assert.ErrorIs(t, err, port.ErrNotFound)
	})

	t.Run("list products", func(t *testing.T) {
		names := func(ps []domain.Product) []string {
			var out []string
			for _, p := range ps {
				out = append(out, p.Name)
			}
			return out
		}

		got, err := repo.ListProducts(ctx, domain.ProductFilter{Name: prefix, ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "-Alpha", prefix + "-Beta"}, names(got))

		got, err = repo.ListProducts(ctx, domain.ProductFilter{Name: prefix})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		got, err = repo.ListProducts(ctx, domain.ProductFilter{Name: prefix, MinPrice: dec("20"), ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "-Beta"}, names(got))

		got, err = repo.ListProducts(ctx, domain.ProductFilter{CategoryName: strings.ToUpper(prefix + "-X"), ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "-Alpha"}, names(got))

		got, err = repo.ListProducts(ctx, domain.ProductFilter{CategoryID: y.ID, MaxPrice: dec("50")})
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "-Beta"}, names(got))

		got, err = repo.ListProducts(ctx, domain.ProductFilter{Name: prefix + "%"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("find by name contains", func(t *testing.T) {
		got, err := repo.FindProductByNameContains(ctx, strings.ToUpper(prefix+"-alpha"))
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		_, err = repo.FindProductByNameContains(ctx, prefix+"-delta")
		assert.ErrorIs(t, err, port.ErrNotFound)
	})

	t.Run("update product", func(t *testing.T) {
		inactive := false
		got, err := repo.UpdateProduct(ctx, b.ID, domain.ProductChanges{IsActive: &inactive, Price: dec("55.5")})
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("55.5")))

		// Re-applying the same change is not an error.
		got, err = repo.UpdateProduct(ctx, b.ID, domain.ProductChanges{IsActive: &inactive})
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		got, err = repo.UpdateProduct(ctx, b.ID, domain.ProductChanges{})
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)

		_, err = repo.UpdateProduct(ctx, "missing-product", domain.ProductChanges{IsActive: &inactive})
		assert.ErrorIs(t, err, port.ErrNotFound)
	})

	t.Run("delete product", func(t *testing.T) {
		require.NoError(t, repo.DeleteProduct(ctx, a.ID))
		_, err := repo.GetProduct(ctx, a.ID)
		assert.ErrorIs(t, err, port.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteProduct(ctx, a.ID), port.ErrNotFound)
	})
}
