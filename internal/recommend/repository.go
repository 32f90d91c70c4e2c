package recommend

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the postgres-backed candidate source.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const candidateQuery = `
SELECT p.id, p.name, p.slug, p.sku, p.price, p.sale_price, p.image_url, pr.average_rating
FROM products p
LEFT JOIN product_ratings pr ON pr.product_id = p.id
WHERE p.is_active AND p.id <> ALL($1)`

const candidateOrder = ` ORDER BY pr.average_rating DESC NULLS LAST, p.id ASC LIMIT `

func (r *repository) SameCategoryAndBrand(ctx context.Context, categoryID, brandID int64, exclude []int64, limit int) ([]Candidate, error) {
	query := candidateQuery + ` AND p.category_id = $2 AND p.brand_id = $3` + candidateOrder + `$4`
	rows, err := r.db.Query(ctx, query, exclude, categoryID, brandID, limit)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

func (r *repository) SameCategory(ctx context.Context, categoryID int64, exclude []int64, limit int) ([]Candidate, error) {
	query := candidateQuery + ` AND p.category_id = $2` + candidateOrder + `$3`
	rows, err := r.db.Query(ctx, query, exclude, categoryID, limit)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

func (r *repository) AnyActive(ctx context.Context, exclude []int64, limit int) ([]Candidate, error) {
	query := candidateQuery + candidateOrder + `$2`
	rows, err := r.db.Query(ctx, query, exclude, limit)
	if err != nil {
		return nil, err
	}
	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]Candidate, error) {
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SKU, &c.Price, &c.SalePrice, &c.ImageURL, &c.AverageRating); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
