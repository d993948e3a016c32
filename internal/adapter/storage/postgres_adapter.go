package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (r *PostgresAdapter) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at
		FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return c, nil
}

func (r *PostgresAdapter) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at
		FROM categories WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category by name: %w", err)
	}
	return c, nil
}

func (r *PostgresAdapter) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.ID = uuid.NewString()
	category.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Description, category.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", mapPgError(err))
	}
	return &category, nil
}

func (r *PostgresAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PostgresAdapter) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.ID = uuid.NewString()
	product.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, is_active, category_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		product.ID, product.Name, product.Description, product.Price,
		product.IsActive, product.CategoryID, product.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", mapPgError(err))
	}
	return &product, nil
}

func (r *PostgresAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		"SELECT "+productColumns+productFrom+"\n\tWHERE p.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (r *PostgresAdapter) FindProductByNameContains(ctx context.Context, substr string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		"SELECT "+productColumns+productFrom+`
		WHERE p.name ILIKE $1
		ORDER BY p.created_at, p.id
		LIMIT 1`, containsPattern(substr)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by name: %w", err)
	}
	return p, nil
}

func (r *PostgresAdapter) UpdateProduct(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	query, vals, ok := postgresDialect.updateQuery(id, changes)
	if !ok {
		return r.GetProduct(ctx, id)
	}

	tag, err := r.pool.Exec(ctx, query, vals...)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, port.ErrNotFound
	}
	return r.GetProduct(ctx, id)
}

func (r *PostgresAdapter) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *PostgresAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query, vals := postgresDialect.productQuery(filter)
	rows, err := r.pool.Query(ctx, query, vals...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", port.ErrConstraintViolation, pgErr.Message)
		}
	}
	return err
}
