package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/shared"
)

type Repository interface {
	GetOrCreateCart(ctx context.Context, userID int64) (Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID int64) error
	Clear(ctx context.Context, cartID int64) error
	ListItems(ctx context.Context, cartID int64) ([]Item, error)
	GetItemQuantity(ctx context.Context, cartID, productID int64) (int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetOrCreateCart(ctx context.Context, userID int64) (Cart, error) {
	var c Cart
	// The no-op update makes the insert return the existing row on conflict.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, created_at, updated_at`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cart{}, fmt.Errorf("cart: get or create: %w", err)
	}
	return c, nil
}

func (r *pgRepository) AddItem(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = now()`, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("cart: add item: %w", err)
	}
	return nil
}

func (r *pgRepository) SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("cart: set quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) RemoveItem(ctx context.Context, cartID, productID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("cart: remove item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Clear(ctx context.Context, cartID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (r *pgRepository) ListItems(ctx context.Context, cartID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
			p.name, p.slug, p.sku, p.price, p.sale_price, p.stock_quantity,
			ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart: list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity,
			&it.ProductName, &it.ProductSlug, &it.ProductSKU, &it.Price, &it.SalePrice, &it.StockLeft,
			&it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("cart: scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetItemQuantity(ctx context.Context, cartID, productID int64) (int, error) {
	var qty int
	err := r.pool.QueryRow(ctx,
		`SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("cart: item quantity: %w", err)
	}
	return qty, nil
}
