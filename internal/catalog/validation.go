package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/revforge/revforge/internal/shared"
)

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: name exceeds 200 characters", shared.ErrValidation)
	}
	return nil
}

func (s *Service) validateProduct(ctx context.Context, p *Product) error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.Price <= 0 || p.Price > MaxPrice {
		return fmt.Errorf("%w: price must be positive and at most %.2f", shared.ErrValidation, MaxPrice)
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", shared.ErrValidation)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", shared.ErrValidation)
	}
	if p.MinStockLevel < 0 {
		return fmt.Errorf("%w: min stock level cannot be negative", shared.ErrValidation)
	}
	if p.CategoryID <= 0 || p.SubCategoryID <= 0 || p.BrandID <= 0 {
		return fmt.Errorf("%w: category, subcategory and brand are required", shared.ErrValidation)
	}
	sc, err := s.repo.GetSubCategory(ctx, p.SubCategoryID)
	if err != nil {
		return fmt.Errorf("verify subcategory: %w", err)
	}
	if sc.CategoryID != p.CategoryID {
		return fmt.Errorf("%w: subcategory does not belong to category", shared.ErrValidation)
	}
	return nil
}
