package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/catalog-service/internal/core/domain"
	"github.com/rl1809/catalog-service/internal/port"
)

const (
	mysqlDuplicateEntry       = 1062
	mysqlForeignKeyViolation  = 1452
	mysqlForeignKeyReferenced = 1451
)

// MySQLDSN returns dsn with the options the adapter relies on forced on:
// created_at is scanned into time.Time, which needs parseTime.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(m.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return c, nil
}

func (m *MySQLAdapter) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	c, err := scanCategory(m.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM categories WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category by name: %w", err)
	}
	return c, nil
}

func (m *MySQLAdapter) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.ID = uuid.NewString()
	category.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at)
		VALUES (?, ?, ?, ?)`,
		category.ID, category.Name, category.Description, category.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", mapMySQLError(err))
	}
	return &category, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `
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

func (m *MySQLAdapter) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.ID = uuid.NewString()
	product.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, is_active, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.Price,
		product.IsActive, product.CategoryID, product.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", mapMySQLError(err))
	}
	return &product, nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx,
		"SELECT "+productColumns+productFrom+"\n\tWHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (m *MySQLAdapter) FindProductByNameContains(ctx context.Context, substr string) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx,
		"SELECT "+productColumns+productFrom+`
		WHERE LOWER(p.name) LIKE LOWER(?)
		ORDER BY p.created_at, p.id
		LIMIT 1`, containsPattern(substr)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by name: %w", err)
	}
	return p, nil
}

// UpdateProduct re-reads the row afterwards because MySQL reports zero
// affected rows for an update that changes nothing.
func (m *MySQLAdapter) UpdateProduct(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	if query, vals, ok := mysqlDialect.updateQuery(id, changes); ok {
		if _, err := m.db.ExecContext(ctx, query, vals...); err != nil {
			return nil, fmt.Errorf("update product: %w", mapMySQLError(err))
		}
	}
	return m.GetProduct(ctx, id)
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", mapMySQLError(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query, vals := mysqlDialect.productQuery(filter)
	rows, err := m.db.QueryContext(ctx, query, vals...)
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

func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry, mysqlForeignKeyViolation, mysqlForeignKeyReferenced:
			return fmt.Errorf("%w: %s", port.ErrConstraintViolation, me.Message)
		}
	}
	return err
}
