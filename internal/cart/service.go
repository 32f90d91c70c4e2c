package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/revforge/revforge/internal/catalog"
	"github.com/revforge/revforge/internal/shared"
)

// ProductSource looks up products for stock and activity checks.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	products ProductSource
	taxRate  float64
}

func NewService(logger *slog.Logger, repo Repository, products ProductSource, taxRate float64) *Service {
	return &Service{logger: logger, repo: repo, products: products, taxRate: taxRate}
}

// View is the cart payload returned by every mutating call so clients can
// redraw without a follow-up fetch.
type View struct {
	Success bool   `json:"success"`
	Items   []Item `json:"items"`
	Totals
}

func (s *Service) view(ctx context.Context, cartID int64) (View, error) {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	return View{Success: true, Items: items, Totals: computeTotals(items, s.taxRate)}, nil
}

// Get returns the user's cart, creating it on first use.
func (s *Service) Get(ctx context.Context, userID int64) (View, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, c.ID)
}

// AddItem puts quantity units of a product in the user's cart. Adding a
// product already in the cart increments its line instead of duplicating it.
// The resulting quantity never exceeds available stock.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (View, error) {
	if quantity <= 0 {
		return View{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if !p.IsActive {
		return View{}, fmt.Errorf("%w: product is not available", shared.ErrNotFound)
	}
	if p.StockQuantity <= 0 {
		return View{}, fmt.Errorf("%w: product is out of stock", shared.ErrConflict)
	}

	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if err := s.repo.AddItem(ctx, c.ID, productID, quantity); err != nil {
		return View{}, err
	}

	// Clamp after the increment so concurrent adds cannot overshoot stock.
	current, err := s.repo.GetItemQuantity(ctx, c.ID, productID)
	if err != nil {
		return View{}, err
	}
	if current > p.StockQuantity {
		if err := s.repo.SetItemQuantity(ctx, c.ID, productID, p.StockQuantity); err != nil {
			return View{}, err
		}
		s.logger.Info("cart quantity clamped to stock",
			slog.Int64("product_id", productID), slog.Int("stock", p.StockQuantity))
	}
	return s.view(ctx, c.ID)
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the line;
// anything above stock is clamped down.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (View, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if quantity <= 0 {
		if err := s.repo.RemoveItem(ctx, c.ID, productID); err != nil {
			return View{}, err
		}
		return s.view(ctx, c.ID)
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if quantity > p.StockQuantity {
		quantity = p.StockQuantity
	}
	if quantity <= 0 {
		if err := s.repo.RemoveItem(ctx, c.ID, productID); err != nil {
			return View{}, err
		}
		return s.view(ctx, c.ID)
	}
	if err := s.repo.SetItemQuantity(ctx, c.ID, productID, quantity); err != nil {
		return View{}, err
	}
	return s.view(ctx, c.ID)
}

// RemoveItem deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (View, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if err := s.repo.RemoveItem(ctx, c.ID, productID); err != nil {
		return View{}, err
	}
	return s.view(ctx, c.ID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID int64) (View, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if err := s.repo.Clear(ctx, c.ID); err != nil {
		return View{}, err
	}
	return s.view(ctx, c.ID)
}

// Snapshot returns the cart id and its current lines for checkout.
func (s *Service) Snapshot(ctx context.Context, userID int64) (int64, []Item, error) {
	c, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	items, err := s.repo.ListItems(ctx, c.ID)
	if err != nil {
		return 0, nil, err
	}
	return c.ID, items, nil
}

// TaxRate exposes the configured rate for checkout total calculations.
func (s *Service) TaxRate() float64 {
	return s.taxRate
}
