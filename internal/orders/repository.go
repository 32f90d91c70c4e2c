package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/platform/db"
	"github.com/revforge/revforge/internal/shared"
)

// ErrNumberTaken is returned when an order number collides. Checkout retries
// a bounded number of times on it.
var ErrNumberTaken = fmt.Errorf("%w: order number already in use", shared.ErrDuplicate)

type Repository interface {
	// Transact runs fn against a transaction-bound view of the repository.
	// All writes inside fn commit or roll back together.
	Transact(ctx context.Context, fn func(Repository) error) error

	NextOrderNumber(ctx context.Context, prefix string, day time.Time) (string, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	InsertItems(ctx context.Context, orderID int64, items []Item) ([]Item, error)
	// DecrementStock takes up to quantity units off the shelf, flooring at
	// zero, and reports how many it actually removed.
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, error)
	RestoreStock(ctx context.Context, productID int64, quantity int) error
	AppendHistory(ctx context.Context, c StatusChange) error
	ClearCartItems(ctx context.Context, cartID int64) error

	GetByNumber(ctx context.Context, number string) (Order, error)
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]Order, int, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
	History(ctx context.Context, orderID int64) ([]StatusChange, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, shippedAt, deliveredAt *time.Time) error
	SetPaymentStatus(ctx context.Context, orderID int64, status string) error
	UpdateTotals(ctx context.Context, orderID int64, subtotal, tax, discount, total float64) error

	ListShippingMethods(ctx context.Context, activeOnly bool) ([]ShippingMethod, error)
	GetShippingMethod(ctx context.Context, id int64) (ShippingMethod, error)
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (PaymentMethod, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same methods
// serve inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, q: pool}
}

func (r *pgRepository) Transact(ctx context.Context, fn func(Repository) error) error {
	if _, inTx := r.q.(pgx.Tx); inTx {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgRepository{pool: r.pool, q: tx})
	})
}

// NextOrderNumber reserves the next sequence number for the day and formats
// it as PREFIX-YYYYMMDD-NNNN. The counter upsert takes a row lock, so two
// concurrent checkouts get distinct numbers.
func (r *pgRepository) NextOrderNumber(ctx context.Context, prefix string, day time.Time) (string, error) {
	var seq int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO order_day_counters (day, counter)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = order_day_counters.counter + 1
		RETURNING counter`, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("orders: next order number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq), nil
}

const orderColumns = `id, order_number, user_id, status, payment_status,
	payment_method_name, shipping_method_name,
	shipping_name, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
	subtotal, shipping_cost, tax, discount_amount, total, notes,
	created_at, updated_at, shipped_at, delivered_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.PaymentStatus,
		&o.PaymentMethodName, &o.ShippingMethodName,
		&o.ShippingName, &o.ShippingPhone, &o.ShippingAddress, &o.ShippingCity, &o.ShippingPostal,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.DiscountAmount, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: scan order: %w", err)
	}
	return o, nil
}

func (r *pgRepository) InsertOrder(ctx context.Context, o Order) (Order, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, status, payment_status,
			payment_method_name, shipping_method_name,
			shipping_name, shipping_phone, shipping_address, shipping_city, shipping_postal_code,
			subtotal, shipping_cost, tax, discount_amount, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+orderColumns,
		o.Number, o.UserID, o.Status, o.PaymentStatus,
		o.PaymentMethodName, o.ShippingMethodName,
		o.ShippingName, o.ShippingPhone, o.ShippingAddress, o.ShippingCity, o.ShippingPostal,
		o.Subtotal, o.ShippingCost, o.Tax, o.DiscountAmount, o.Total, o.Notes)
	created, err := scanOrder(row)
	if shared.IsUniqueViolation(err, "orders_order_number_key") {
		return Order{}, ErrNumberTaken
	}
	return created, err
}

func (r *pgRepository) InsertItems(ctx context.Context, orderID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		var id int64
		err := r.q.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_sku,
				unit_price, quantity, line_total, stock_deducted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			orderID, it.ProductID, it.ProductName, it.ProductSKU,
			it.UnitPrice, it.Quantity, it.LineTotal, it.StockDeducted).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("orders: insert item: %w", err)
		}
		it.ID = id
		it.OrderID = orderID
		out = append(out, it)
	}
	return out, nil
}

// DecrementStock reduces on-hand stock, flooring at zero so concurrent
// checkouts cannot drive it negative. The returned count is the number of
// units actually removed, which a later cancellation puts back.
func (r *pgRepository) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var deducted int
	err := r.q.QueryRow(ctx, `
		UPDATE products p
		SET stock_quantity = GREATEST(p.stock_quantity - $2, 0), updated_at = now()
		FROM (SELECT id, stock_quantity AS prev FROM products WHERE id = $1 FOR UPDATE) held
		WHERE p.id = held.id
		RETURNING LEAST($2, held.prev)`, productID, quantity).Scan(&deducted)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("orders: decrement stock: %w", err)
	}
	return deducted, nil
}

// RestoreStock returns units to inventory after a cancellation.
func (r *pgRepository) RestoreStock(ctx context.Context, productID int64, quantity int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`, productID, quantity)
	if err != nil {
		return fmt.Errorf("orders: restore stock: %w", err)
	}
	return nil
}

func (r *pgRepository) AppendHistory(ctx context.Context, c StatusChange) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, comment, changed_by)
		VALUES ($1, $2, $3, $4)`, c.OrderID, c.Status, c.Comment, c.ChangedBy)
	if err != nil {
		return fmt.Errorf("orders: append history: %w", err)
	}
	return nil
}

func (r *pgRepository) ClearCartItems(ctx context.Context, cartID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("orders: clear cart: %w", err)
	}
	return nil
}

func (r *pgRepository) GetByNumber(ctx context.Context, number string) (Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	return scanOrder(row)
}

func (r *pgRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]Order, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orders: count by user: %w", err)
	}

	offset := (page - 1) * limit
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list by user: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_sku, unit_price, quantity, line_total, stock_deducted
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
			&it.UnitPrice, &it.Quantity, &it.LineTotal, &it.StockDeducted)
		if err != nil {
			return nil, fmt.Errorf("orders: scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *pgRepository) History(ctx context.Context, orderID int64) ([]StatusChange, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, status, comment, changed_by, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: history: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Status, &c.Comment, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: scan history: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status string, shippedAt, deliveredAt *time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $2,
			shipped_at = COALESCE($3, shipped_at),
			delivered_at = COALESCE($4, delivered_at),
			updated_at = now()
		WHERE id = $1`, orderID, status, shippedAt, deliveredAt)
	if err != nil {
		return fmt.Errorf("orders: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetPaymentStatus(ctx context.Context, orderID int64, status string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("orders: set payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) UpdateTotals(ctx context.Context, orderID int64, subtotal, tax, discount, total float64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET subtotal = $2, tax = $3, discount_amount = $4, total = $5, updated_at = now()
		WHERE id = $1`, orderID, subtotal, tax, discount, total)
	if err != nil {
		return fmt.Errorf("orders: update totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) ListShippingMethods(ctx context.Context, activeOnly bool) ([]ShippingMethod, error) {
	q := `SELECT id, name, description, cost, estimated_days, is_active FROM shipping_methods`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY cost`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("orders: list shipping methods: %w", err)
	}
	defer rows.Close()

	var out []ShippingMethod
	for rows.Next() {
		var m ShippingMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Cost, &m.EstimatedDays, &m.IsActive); err != nil {
			return nil, fmt.Errorf("orders: scan shipping method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetShippingMethod(ctx context.Context, id int64) (ShippingMethod, error) {
	var m ShippingMethod
	err := r.q.QueryRow(ctx, `
		SELECT id, name, description, cost, estimated_days, is_active
		FROM shipping_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.Cost, &m.EstimatedDays, &m.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ShippingMethod{}, shared.ErrNotFound
	}
	if err != nil {
		return ShippingMethod{}, fmt.Errorf("orders: get shipping method: %w", err)
	}
	return m, nil
}

func (r *pgRepository) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error) {
	q := `SELECT id, name, code, description, is_active FROM payment_methods`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY id`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("orders: list payment methods: %w", err)
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Code, &m.Description, &m.IsActive); err != nil {
			return nil, fmt.Errorf("orders: scan payment method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetPaymentMethod(ctx context.Context, id int64) (PaymentMethod, error) {
	var m PaymentMethod
	err := r.q.QueryRow(ctx, `
		SELECT id, name, code, description, is_active
		FROM payment_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Code, &m.Description, &m.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentMethod{}, shared.ErrNotFound
	}
	if err != nil {
		return PaymentMethod{}, fmt.Errorf("orders: get payment method: %w", err)
	}
	return m, nil
}
