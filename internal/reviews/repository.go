package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/shared"
)

type Repository interface {
	UpsertReview(ctx context.Context, rv Review) (Review, error)
	GetReview(ctx context.Context, id int64) (Review, error)
	DeleteReview(ctx context.Context, id int64) error
	SetApproval(ctx context.Context, id int64, approved bool) (Review, error)
	ListByProduct(ctx context.Context, productID int64, approvedOnly bool) ([]Review, error)
	ApprovedRatings(ctx context.Context, productID int64) ([]int, error)
	HasPurchased(ctx context.Context, userID, productID int64) (bool, error)
	UpsertSummary(ctx context.Context, s RatingSummary) error
	GetSummary(ctx context.Context, productID int64) (RatingSummary, error)
	ReviewedProductIDs(ctx context.Context) ([]int64, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const reviewColumns = `id, user_id, product_id, rating, title, content, pros, cons,
	is_verified_purchase, is_approved, created_at, updated_at`

func scanReview(row pgx.Row) (Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Title, &rv.Content,
		&rv.Pros, &rv.Cons, &rv.IsVerifiedPurchase, &rv.IsApproved, &rv.CreatedAt, &rv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, shared.ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("reviews: scan review: %w", err)
	}
	return rv, nil
}

func (r *pgRepository) UpsertReview(ctx context.Context, rv Review) (Review, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (user_id, product_id, rating, title, content, pros, cons,
			is_verified_purchase, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			pros = EXCLUDED.pros,
			cons = EXCLUDED.cons,
			is_verified_purchase = EXCLUDED.is_verified_purchase,
			updated_at = now()
		RETURNING `+reviewColumns,
		rv.UserID, rv.ProductID, rv.Rating, rv.Title, rv.Content, rv.Pros, rv.Cons,
		rv.IsVerifiedPurchase, rv.IsApproved)
	return scanReview(row)
}

func (r *pgRepository) GetReview(ctx context.Context, id int64) (Review, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	return scanReview(row)
}

func (r *pgRepository) DeleteReview(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reviews: delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetApproval(ctx context.Context, id int64, approved bool) (Review, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reviews SET is_approved = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+reviewColumns, id, approved)
	return scanReview(row)
}

func (r *pgRepository) ListByProduct(ctx context.Context, productID int64, approvedOnly bool) ([]Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1`
	if approvedOnly {
		q += ` AND is_approved`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, productID)
	if err != nil {
		return nil, fmt.Errorf("reviews: list by product: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *pgRepository) ApprovedRatings(ctx context.Context, productID int64) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rating FROM reviews WHERE product_id = $1 AND is_approved`, productID)
	if err != nil {
		return nil, fmt.Errorf("reviews: approved ratings: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("reviews: scan rating: %w", err)
		}
		out = append(out, rating)
	}
	return out, rows.Err()
}

// HasPurchased reports whether the user has an order containing the product
// that has at least shipped. Drives the verified purchase badge.
func (r *pgRepository) HasPurchased(ctx context.Context, userID, productID int64) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2
			  AND o.status IN ('shipped', 'delivered')
		)`, userID, productID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("reviews: has purchased: %w", err)
	}
	return found, nil
}

func (r *pgRepository) UpsertSummary(ctx context.Context, s RatingSummary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_ratings (product_id, average_rating, total_reviews,
			five_star_count, four_star_count, three_star_count, two_star_count, one_star_count,
			last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (product_id) DO UPDATE SET
			average_rating = EXCLUDED.average_rating,
			total_reviews = EXCLUDED.total_reviews,
			five_star_count = EXCLUDED.five_star_count,
			four_star_count = EXCLUDED.four_star_count,
			three_star_count = EXCLUDED.three_star_count,
			two_star_count = EXCLUDED.two_star_count,
			one_star_count = EXCLUDED.one_star_count,
			last_updated = now()`,
		s.ProductID, s.AverageRating, s.TotalReviews,
		s.FiveStarCount, s.FourStarCount, s.ThreeStarCount, s.TwoStarCount, s.OneStarCount)
	if err != nil {
		return fmt.Errorf("reviews: upsert summary: %w", err)
	}
	return nil
}

func (r *pgRepository) GetSummary(ctx context.Context, productID int64) (RatingSummary, error) {
	var s RatingSummary
	err := r.pool.QueryRow(ctx, `
		SELECT product_id, average_rating, total_reviews,
			five_star_count, four_star_count, three_star_count, two_star_count, one_star_count,
			last_updated
		FROM product_ratings WHERE product_id = $1`, productID).
		Scan(&s.ProductID, &s.AverageRating, &s.TotalReviews,
			&s.FiveStarCount, &s.FourStarCount, &s.ThreeStarCount, &s.TwoStarCount, &s.OneStarCount,
			&s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return RatingSummary{}, shared.ErrNotFound
	}
	if err != nil {
		return RatingSummary{}, fmt.Errorf("reviews: get summary: %w", err)
	}
	return s, nil
}

func (r *pgRepository) ReviewedProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT product_id FROM reviews`)
	if err != nil {
		return nil, fmt.Errorf("reviews: reviewed product ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("reviews: scan product id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
