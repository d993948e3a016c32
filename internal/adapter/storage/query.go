package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rl1809/catalog-service/internal/core/domain"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.is_active, p.category_id, p.created_at,
	c.id, c.name, c.description, c.created_at`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

// dialect hides the syntax differences of the SQL backends.
type dialect struct {
	placeholder func(n int) string
	// containsFold renders a case-insensitive LIKE of column against param.
	containsFold func(column, param string) string
}

var (
	mysqlDialect = dialect{
		placeholder: func(int) string { return "?" },
		containsFold: func(column, param string) string {
			return "LOWER(" + column + ") LIKE LOWER(" + param + ")"
		},
	}
	postgresDialect = dialect{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		containsFold: func(column, param string) string {
			return column + " ILIKE " + param
		},
	}
)

// args accumulates query arguments and hands out their placeholders.
type args struct {
	d    dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.placeholder(len(a.vals))
}

// productQuery builds the select for filter, ordered by product name.
func (d dialect) productQuery(filter domain.ProductFilter) (string, []any) {
	a := &args{d: d}
	var where []string

	if filter.ActiveOnly {
		where = append(where, "p.is_active = "+a.add(true))
	}
	if filter.CategoryID != "" {
		where = append(where, "p.category_id = "+a.add(filter.CategoryID))
	}
	if filter.CategoryName != "" {
		where = append(where, d.containsFold("c.name", a.add(containsPattern(filter.CategoryName))))
	}
	if filter.Name != "" {
		where = append(where, d.containsFold("p.name", a.add(containsPattern(filter.Name))))
	}
	if filter.MinPrice != nil {
		where = append(where, "p.price >= "+a.add(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "p.price <= "+a.add(*filter.MaxPrice))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s %s", productColumns, productFrom)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY p.name ASC, p.id ASC")
	return b.String(), a.vals
}

// updateQuery builds the UPDATE for changes. ok is false when there is
// nothing to change.
func (d dialect) updateQuery(id string, changes domain.ProductChanges) (query string, vals []any, ok bool) {
	a := &args{d: d}
	var set []string

	if changes.Name != nil {
		set = append(set, "name = "+a.add(*changes.Name))
	}
	if changes.Description != nil {
		set = append(set, "description = "+a.add(*changes.Description))
	}
	if changes.Price != nil {
		set = append(set, "price = "+a.add(*changes.Price))
	}
	if changes.IsActive != nil {
		set = append(set, "is_active = "+a.add(*changes.IsActive))
	}
	if changes.CategoryID != nil {
		set = append(set, "category_id = "+a.add(*changes.CategoryID))
	}
	if len(set) == 0 {
		return "", nil, false
	}

	query = "UPDATE products SET " + strings.Join(set, ", ") + " WHERE id = " + a.add(id)
	return query, a.vals, true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var c domain.Category
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &p.CategoryID, &p.CreatedAt,
		&c.ID, &c.Name, &c.Description, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Category = &c
	return &p, nil
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
