package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/revforge/revforge/internal/cart"
	"github.com/revforge/revforge/internal/shared"
)

const numberAttempts = 3

// CartSource hands checkout the cart's current lines.
type CartSource interface {
	Snapshot(ctx context.Context, userID int64) (int64, []cart.Item, error)
}

// CheckoutObserver counts checkout outcomes for monitoring.
type CheckoutObserver interface {
	ObserveCheckout(err error)
}

// ConfirmationNotifier queues the confirmation email for a placed order.
// A nil notifier disables confirmations.
type ConfirmationNotifier interface {
	OrderPlaced(ctx context.Context, userID int64, orderNumber string, total float64) error
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	carts    CartSource
	observer CheckoutObserver
	notifier ConfirmationNotifier
	prefix   string
	taxRate  float64
	now      func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, carts CartSource, observer CheckoutObserver, notifier ConfirmationNotifier, prefix string, taxRate float64) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		carts:    carts,
		observer: observer,
		notifier: notifier,
		prefix:   prefix,
		taxRate:  taxRate,
		now:      time.Now,
	}
}

// CheckoutInput carries the shipping and payment choices for a new order.
type CheckoutInput struct {
	ShippingName     string
	ShippingPhone    string
	ShippingAddress  string
	ShippingCity     string
	ShippingPostal   string
	ShippingMethodID int64
	PaymentMethodID  int64
	Notes            string
}

func validateCheckout(in CheckoutInput) error {
	switch {
	case strings.TrimSpace(in.ShippingName) == "":
		return fmt.Errorf("%w: shipping name is required", shared.ErrValidation)
	case strings.TrimSpace(in.ShippingPhone) == "":
		return fmt.Errorf("%w: shipping phone is required", shared.ErrValidation)
	case len(strings.TrimSpace(in.ShippingAddress)) < 5:
		return fmt.Errorf("%w: shipping address is too short", shared.ErrValidation)
	case strings.TrimSpace(in.ShippingCity) == "":
		return fmt.Errorf("%w: shipping city is required", shared.ErrValidation)
	case strings.TrimSpace(in.ShippingPostal) == "":
		return fmt.Errorf("%w: shipping postal code is required", shared.ErrValidation)
	}
	return nil
}

// Checkout converts the user's cart into an order. Within one transaction it
// freezes prices into order lines, decrements stock, writes the opening
// history row and empties the cart. The whole transaction is retried when
// the generated order number collides.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (Order, error) {
	order, err := s.checkout(ctx, userID, in)
	if s.observer != nil {
		s.observer.ObserveCheckout(err)
	}
	return order, err
}

func (s *Service) checkout(ctx context.Context, userID int64, in CheckoutInput) (Order, error) {
	if err := validateCheckout(in); err != nil {
		return Order{}, err
	}

	cartID, items, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, fmt.Errorf("%w: cart is empty", shared.ErrConflict)
	}

	// Both methods are optional. When one is chosen its name and cost are
	// copied onto the order as plain text; the order keeps no reference to
	// the method row.
	var shippingName, paymentName string
	var shippingCost float64
	if in.ShippingMethodID > 0 {
		shipping, err := s.repo.GetShippingMethod(ctx, in.ShippingMethodID)
		if err != nil {
			return Order{}, err
		}
		if !shipping.IsActive {
			return Order{}, fmt.Errorf("%w: selected shipping method is no longer offered", shared.ErrConflict)
		}
		shippingName = shipping.Name
		shippingCost = shipping.Cost
	}
	if in.PaymentMethodID > 0 {
		payment, err := s.repo.GetPaymentMethod(ctx, in.PaymentMethodID)
		if err != nil {
			return Order{}, err
		}
		if !payment.IsActive {
			return Order{}, fmt.Errorf("%w: selected payment method is no longer offered", shared.ErrConflict)
		}
		paymentName = payment.Name
	}

	var subtotal float64
	lines := make([]Item, 0, len(items))
	for _, it := range items {
		productID := it.ProductID
		lines = append(lines, Item{
			ProductID:   &productID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			UnitPrice:   it.UnitPrice(),
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal(),
		})
		subtotal += it.LineTotal()
	}
	subtotal = shared.Round2(subtotal)
	tax := shared.Round2(subtotal * s.taxRate)
	discount := 0.0
	total := shared.Round2(subtotal + shippingCost + tax - discount)

	var created Order
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err = s.repo.Transact(ctx, func(tx Repository) error {
			number, err := tx.NextOrderNumber(ctx, s.prefix, s.now())
			if err != nil {
				return err
			}
			created, err = tx.InsertOrder(ctx, Order{
				Number:             number,
				UserID:             userID,
				Status:             StatusPending,
				PaymentStatus:      PaymentPending,
				PaymentMethodName:  paymentName,
				ShippingMethodName: shippingName,
				ShippingName:       strings.TrimSpace(in.ShippingName),
				ShippingPhone:      strings.TrimSpace(in.ShippingPhone),
				ShippingAddress:    strings.TrimSpace(in.ShippingAddress),
				ShippingCity:       strings.TrimSpace(in.ShippingCity),
				ShippingPostal:     strings.TrimSpace(in.ShippingPostal),
				Subtotal:           subtotal,
				ShippingCost:       shippingCost,
				Tax:                tax,
				DiscountAmount:     discount,
				Total:              total,
				Notes:              strings.TrimSpace(in.Notes),
			})
			if err != nil {
				return err
			}
			for i := range lines {
				deducted, err := tx.DecrementStock(ctx, *lines[i].ProductID, lines[i].Quantity)
				if err != nil {
					return err
				}
				lines[i].StockDeducted = deducted
			}
			created.Items, err = tx.InsertItems(ctx, created.ID, lines)
			if err != nil {
				return err
			}
			if err := tx.AppendHistory(ctx, StatusChange{
				OrderID: created.ID,
				Status:  StatusPending,
				Comment: "Order placed",
			}); err != nil {
				return err
			}
			return tx.ClearCartItems(ctx, cartID)
		})
		if !errors.Is(err, ErrNumberTaken) {
			break
		}
		s.logger.Warn("order number collision, retrying", slog.Int("attempt", attempt+1))
	}
	if errors.Is(err, ErrNumberTaken) {
		return Order{}, fmt.Errorf("%w: could not allocate an order number", shared.ErrTransient)
	}
	if err != nil {
		return Order{}, err
	}

	s.logger.Info("order placed",
		slog.String("order_number", created.Number),
		slog.Int64("user_id", userID),
		slog.Float64("total", created.Total))
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, userID, created.Number, created.Total); err != nil {
			s.logger.Warn("queue order confirmation", slog.Any("error", err))
		}
	}
	return created, nil
}

// Get returns one of the user's orders with its lines. Staff may fetch any
// order.
func (s *Service) Get(ctx context.Context, identity shared.Identity, number string) (Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != identity.UserID && !identity.IsStaff {
		return Order{}, shared.ErrNotFound
	}
	o.Items, err = s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID int64, page, limit int) ([]Order, int, error) {
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	return s.repo.ListByUser(ctx, userID, page, limit)
}

// TrackInfo is the tracking payload shown to customers.
type TrackInfo struct {
	OrderNumber   string         `json:"order_number"`
	Status        string         `json:"status"`
	StatusDisplay string         `json:"status_display"`
	PaymentStatus string         `json:"payment_status"`
	CreatedAt     time.Time      `json:"created_at"`
	ShippedAt     *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CanCancel     bool           `json:"can_cancel"`
	History       []StatusChange `json:"history"`
}

// Track returns the order's lifecycle view including its status history.
func (s *Service) Track(ctx context.Context, identity shared.Identity, number string) (TrackInfo, error) {
	o, err := s.Get(ctx, identity, number)
	if err != nil {
		return TrackInfo{}, err
	}
	history, err := s.repo.History(ctx, o.ID)
	if err != nil {
		return TrackInfo{}, err
	}
	return TrackInfo{
		OrderNumber:   o.Number,
		Status:        o.Status,
		StatusDisplay: StatusDisplay(o.Status),
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
		ShippedAt:     o.ShippedAt,
		DeliveredAt:   o.DeliveredAt,
		CanCancel:     o.CanCancel(),
		History:       history,
	}, nil
}

// Cancel voids an order that has not started processing and returns its
// units to stock.
func (s *Service) Cancel(ctx context.Context, identity shared.Identity, number, reason string) (Order, error) {
	o, err := s.Get(ctx, identity, number)
	if err != nil {
		return Order{}, err
	}
	if !o.CanCancel() {
		return Order{}, fmt.Errorf("%w: order can no longer be cancelled", shared.ErrConflict)
	}

	comment := strings.TrimSpace(reason)
	if comment == "" {
		comment = "Cancelled by customer"
	}
	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.UpdateOrderStatus(ctx, o.ID, StatusCancelled, nil, nil); err != nil {
			return err
		}
		// Put back only what checkout actually took; an oversold line may
		// have deducted less than its ordered quantity.
		for _, line := range o.Items {
			if line.ProductID == nil || line.StockDeducted <= 0 {
				continue
			}
			if err := tx.RestoreStock(ctx, *line.ProductID, line.StockDeducted); err != nil {
				return err
			}
		}
		return tx.AppendHistory(ctx, StatusChange{
			OrderID:   o.ID,
			Status:    StatusCancelled,
			Comment:   comment,
			ChangedBy: &identity.UserID,
		})
	})
	if err != nil {
		return Order{}, err
	}

	o.Status = StatusCancelled
	s.logger.Info("order cancelled", slog.String("order_number", o.Number))
	return o, nil
}

// UpdateStatus moves an order along its lifecycle. Shipped and delivered
// moves stamp their timestamps once; invalid moves are rejected.
func (s *Service) UpdateStatus(ctx context.Context, staffID int64, number, status, comment string) (Order, error) {
	if !IsValidStatus(status) {
		return Order{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
	}
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, status) {
		return Order{}, fmt.Errorf("%w: cannot move order from %s to %s", shared.ErrConflict, o.Status, status)
	}

	var shippedAt, deliveredAt *time.Time
	ts := s.now()
	switch status {
	case StatusShipped:
		shippedAt = &ts
	case StatusDelivered:
		deliveredAt = &ts
	}

	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.UpdateOrderStatus(ctx, o.ID, status, shippedAt, deliveredAt); err != nil {
			return err
		}
		if status == StatusCancelled {
			items, err := tx.ListItems(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, line := range items {
				if line.ProductID == nil || line.StockDeducted <= 0 {
					continue
				}
				if err := tx.RestoreStock(ctx, *line.ProductID, line.StockDeducted); err != nil {
					return err
				}
			}
		}
		return tx.AppendHistory(ctx, StatusChange{
			OrderID:   o.ID,
			Status:    status,
			Comment:   strings.TrimSpace(comment),
			ChangedBy: &staffID,
		})
	})
	if err != nil {
		return Order{}, err
	}

	o.Status = status
	if shippedAt != nil {
		o.ShippedAt = shippedAt
	}
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return o, nil
}

// RecalculateTotals re-derives subtotal, tax and total from the stored order
// lines and persists them. Used after manual line corrections.
func (s *Service) RecalculateTotals(ctx context.Context, number string) (Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Order{}, err
	}
	items, err := s.repo.ListItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	var subtotal float64
	for _, line := range items {
		subtotal += line.LineTotal
	}
	o.Subtotal = shared.Round2(subtotal)
	o.Tax = shared.Round2(o.Subtotal * s.taxRate)
	o.Total = shared.Round2(o.Subtotal + o.ShippingCost + o.Tax - o.DiscountAmount)
	if err := s.repo.UpdateTotals(ctx, o.ID, o.Subtotal, o.Tax, o.DiscountAmount, o.Total); err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// SetPaymentStatus records a payment outcome. Refund flows also move the
// payment status here.
func (s *Service) SetPaymentStatus(ctx context.Context, number, status string) (Order, error) {
	switch status {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
	default:
		return Order{}, fmt.Errorf("%w: unknown payment status %q", shared.ErrValidation, status)
	}
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Order{}, err
	}
	if err := s.repo.SetPaymentStatus(ctx, o.ID, status); err != nil {
		return Order{}, err
	}
	o.PaymentStatus = status
	return o, nil
}

// CheckoutOptions lists the active shipping and payment methods offered at
// checkout.
type CheckoutOptions struct {
	ShippingMethods []ShippingMethod `json:"shipping_methods"`
	PaymentMethods  []PaymentMethod  `json:"payment_methods"`
}

func (s *Service) Options(ctx context.Context) (CheckoutOptions, error) {
	shipping, err := s.repo.ListShippingMethods(ctx, true)
	if err != nil {
		return CheckoutOptions{}, err
	}
	payment, err := s.repo.ListPaymentMethods(ctx, true)
	if err != nil {
		return CheckoutOptions{}, err
	}
	return CheckoutOptions{ShippingMethods: shipping, PaymentMethods: payment}, nil
}
