package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/shared"
)

const recentViewLimit = 10

type Repository interface {
	GetProfile(ctx context.Context, userID int64) (Profile, error)
	UpdateProfile(ctx context.Context, p Profile) (Profile, error)

	ApplyVendor(ctx context.Context, userID int64, team string) (Profile, error)
	SetVendorStatus(ctx context.Context, userID int64, status string) (Profile, error)
	ListVendorApplications(ctx context.Context, status string) ([]Profile, error)

	AddWishlistItem(ctx context.Context, userID, productID int64) error
	RemoveWishlistItem(ctx context.Context, userID, productID int64) error
	ListWishlist(ctx context.Context, userID int64) ([]WishlistItem, error)

	UpsertRecentView(ctx context.Context, userID, productID int64) error
	ListRecentViews(ctx context.Context, userID int64, limit int) ([]RecentView, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const profileColumns = `user_id, phone, address, city, postal_code, avatar_url,
	is_vendor, vendor_status, vendor_team, vendor_application_date, vendor_approved_date, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.Phone, &p.Address, &p.City, &p.PostalCode, &p.AvatarURL,
		&p.IsVendor, &p.VendorStatus, &p.VendorTeam, &p.VendorAppliedAt, &p.VendorApprovedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, shared.ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("users: scan profile: %w", err)
	}
	return p, nil
}

func (r *pgRepository) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles WHERE user_id = $1`, userID))
}

func (r *pgRepository) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET phone = $2, address = $3, city = $4, postal_code = $5, avatar_url = $6, updated_at = now()
		WHERE user_id = $1
		RETURNING `+profileColumns,
		p.UserID, p.Phone, p.Address, p.City, p.PostalCode, p.AvatarURL))
}

func (r *pgRepository) ApplyVendor(ctx context.Context, userID int64, team string) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET is_vendor = TRUE, vendor_status = $2, vendor_team = $3,
			vendor_application_date = now(), vendor_approved_date = NULL, updated_at = now()
		WHERE user_id = $1
		RETURNING `+profileColumns,
		userID, VendorPending, team))
}

func (r *pgRepository) SetVendorStatus(ctx context.Context, userID int64, status string) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET vendor_status = $2,
			vendor_approved_date = CASE WHEN $2 = 'approved' THEN now() ELSE NULL END,
			updated_at = now()
		WHERE user_id = $1 AND is_vendor
		RETURNING `+profileColumns,
		userID, status))
}

func (r *pgRepository) ListVendorApplications(ctx context.Context, status string) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM user_profiles
		WHERE is_vendor AND ($1 = '' OR vendor_status = $1)
		ORDER BY vendor_application_date DESC NULLS LAST`, status)
	if err != nil {
		return nil, fmt.Errorf("users: list vendor applications: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) AddWishlistItem(ctx context.Context, userID, productID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	if err != nil {
		return fmt.Errorf("users: add wishlist item: %w", err)
	}
	return nil
}

func (r *pgRepository) RemoveWishlistItem(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("users: remove wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) ListWishlist(ctx context.Context, userID int64) ([]WishlistItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT w.id, w.product_id, p.name, p.slug, p.price, p.sale_price,
			p.stock_quantity > 0, w.created_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("users: list wishlist: %w", err)
	}
	defer rows.Close()

	var out []WishlistItem
	for rows.Next() {
		var it WishlistItem
		err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.ProductSlug,
			&it.Price, &it.SalePrice, &it.InStock, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("users: scan wishlist item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *pgRepository) UpsertRecentView(ctx context.Context, userID, productID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recently_viewed (user_id, product_id, view_count, last_viewed_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			view_count = recently_viewed.view_count + 1,
			last_viewed_at = now()`, userID, productID)
	if err != nil {
		return fmt.Errorf("users: upsert recent view: %w", err)
	}
	return nil
}

func (r *pgRepository) ListRecentViews(ctx context.Context, userID int64, limit int) ([]RecentView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rv.product_id, p.name, p.slug, rv.view_count, rv.last_viewed_at
		FROM recently_viewed rv
		JOIN products p ON p.id = rv.product_id
		WHERE rv.user_id = $1 AND p.is_active
		ORDER BY rv.last_viewed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("users: list recent views: %w", err)
	}
	defer rows.Close()

	var out []RecentView
	for rows.Next() {
		var v RecentView
		if err := rows.Scan(&v.ProductID, &v.ProductName, &v.ProductSlug, &v.ViewCount, &v.LastViewedAt); err != nil {
			return nil, fmt.Errorf("users: scan recent view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
