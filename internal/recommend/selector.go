// Package recommend ranks related products for storefront display using a
// tiered fallback: same category and brand, then same category, then any
// active product. Candidates are ordered by average rating.
package recommend

import (
	"context"
	"fmt"
)

// Candidate is the read model returned to listings.
type Candidate struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	SKU           string   `json:"sku"`
	Price         float64  `json:"price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

// Repository supplies ranked candidates per tier. Implementations must order
// by average rating descending with unrated products last, then by id for a
// deterministic tiebreak, and must honour the exclusion list.
type Repository interface {
	SameCategoryAndBrand(ctx context.Context, categoryID, brandID int64, exclude []int64, limit int) ([]Candidate, error)
	SameCategory(ctx context.Context, categoryID int64, exclude []int64, limit int) ([]Candidate, error)
	AnyActive(ctx context.Context, exclude []int64, limit int) ([]Candidate, error)
}

// Selector composes the tiers.
type Selector struct {
	repo  Repository
	cache *Cache
	limit int
}

// NewSelector builds a Selector returning at most limit candidates.
func NewSelector(repo Repository, cache *Cache, limit int) *Selector {
	if limit <= 0 {
		limit = 3
	}
	return &Selector{repo: repo, cache: cache, limit: limit}
}

// Recommend returns up to the configured number of products related to the
// source product. The source itself never appears and tiers never duplicate.
func (s *Selector) Recommend(ctx context.Context, productID, categoryID, brandID int64) ([]Candidate, error) {
	if s.cache != nil {
		var cached []Candidate
		key, err := s.cache.Key(ctx, productID)
		if err == nil {
			if err := s.cache.Fetch(ctx, key, &cached, func(ctx context.Context) (interface{}, error) {
				return s.recommend(ctx, productID, categoryID, brandID)
			}); err == nil {
				return cached, nil
			}
		}
	}
	return s.recommend(ctx, productID, categoryID, brandID)
}

func (s *Selector) recommend(ctx context.Context, productID, categoryID, brandID int64) ([]Candidate, error) {
	picks := make([]Candidate, 0, s.limit)
	exclude := []int64{productID}

	tiers := []func(context.Context, []int64, int) ([]Candidate, error){
		func(ctx context.Context, excl []int64, limit int) ([]Candidate, error) {
			return s.repo.SameCategoryAndBrand(ctx, categoryID, brandID, excl, limit)
		},
		func(ctx context.Context, excl []int64, limit int) ([]Candidate, error) {
			return s.repo.SameCategory(ctx, categoryID, excl, limit)
		},
		s.repo.AnyActive,
	}

	for i, tier := range tiers {
		remaining := s.limit - len(picks)
		if remaining == 0 {
			break
		}
		found, err := tier(ctx, exclude, remaining)
		if err != nil {
			return nil, fmt.Errorf("recommend: tier %d: %w", i+1, err)
		}
		for _, c := range found {
			picks = append(picks, c)
			exclude = append(exclude, c.ID)
		}
	}
	return picks, nil
}
