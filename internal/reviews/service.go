package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/revforge/revforge/internal/shared"
)

// Invalidator lets a review write bust downstream caches keyed on ratings,
// such as the recommendation cache.
type Invalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	logger      *slog.Logger
	repo        Repository
	invalidator Invalidator
}

func NewService(logger *slog.Logger, repo Repository, invalidator Invalidator) *Service {
	return &Service{logger: logger, repo: repo, invalidator: invalidator}
}

type SubmitInput struct {
	Rating  int
	Title   string
	Content string
	Pros    string
	Cons    string
}

func validateSubmit(in SubmitInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Title) == "" || len(in.Title) > 200 {
		return fmt.Errorf("%w: title is required and must be at most 200 characters", shared.ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", shared.ErrValidation)
	}
	return nil
}

// Submit creates the user's review of a product, or replaces it if one
// already exists. The verified purchase flag is derived server side and
// cannot be supplied by the caller.
func (s *Service) Submit(ctx context.Context, userID, productID int64, in SubmitInput) (Review, error) {
	if err := validateSubmit(in); err != nil {
		return Review{}, err
	}

	verified, err := s.repo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return Review{}, err
	}

	rv, err := s.repo.UpsertReview(ctx, Review{
		UserID:             userID,
		ProductID:          productID,
		Rating:             in.Rating,
		Title:              strings.TrimSpace(in.Title),
		Content:            strings.TrimSpace(in.Content),
		Pros:               strings.TrimSpace(in.Pros),
		Cons:               strings.TrimSpace(in.Cons),
		IsVerifiedPurchase: verified,
		IsApproved:         true,
	})
	if err != nil {
		return Review{}, err
	}

	if err := s.Recompute(ctx, productID); err != nil {
		return Review{}, err
	}
	return rv, nil
}

// Delete removes a review. Non-staff callers may only delete their own.
func (s *Service) Delete(ctx context.Context, identity shared.Identity, reviewID int64) error {
	rv, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if rv.UserID != identity.UserID && !identity.IsStaff {
		return fmt.Errorf("%w: cannot delete another user's review", shared.ErrForbidden)
	}
	if err := s.repo.DeleteReview(ctx, reviewID); err != nil {
		return err
	}
	return s.Recompute(ctx, rv.ProductID)
}

// SetApproval hides or restores a review from public listings and from the
// aggregate. Staff only; the handler enforces that.
func (s *Service) SetApproval(ctx context.Context, reviewID int64, approved bool) (Review, error) {
	rv, err := s.repo.SetApproval(ctx, reviewID, approved)
	if err != nil {
		return Review{}, err
	}
	if err := s.Recompute(ctx, rv.ProductID); err != nil {
		return Review{}, err
	}
	return rv, nil
}

// Recompute rebuilds the product's rating summary from scratch out of its
// approved reviews. Running it twice in a row is a no-op.
func (s *Service) Recompute(ctx context.Context, productID int64) error {
	ratings, err := s.repo.ApprovedRatings(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSummary(ctx, summarize(productID, ratings)); err != nil {
		return err
	}
	if s.invalidator != nil {
		if err := s.invalidator.Bump(ctx); err != nil {
			s.logger.Warn("reviews: cache invalidation failed", "error", err)
		}
	}
	return nil
}

// RecomputeAll rebuilds the summary of every product that has ever been
// reviewed. Used by the nightly resync job to repair drift.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ReviewedProductIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Recompute(ctx, id); err != nil {
			return 0, fmt.Errorf("reviews: recompute product %d: %w", id, err)
		}
	}
	return len(ids), nil
}

// ListForProduct returns reviews for public display. Staff see unapproved
// reviews as well.
func (s *Service) ListForProduct(ctx context.Context, productID int64, includeUnapproved bool) ([]Review, error) {
	return s.repo.ListByProduct(ctx, productID, !includeUnapproved)
}

// Summary returns the product's aggregate. A product with no reviews yet
// yields a zero summary rather than an error.
func (s *Service) Summary(ctx context.Context, productID int64) (RatingSummary, error) {
	sum, err := s.repo.GetSummary(ctx, productID)
	if err != nil {
		if shared.IsNotFound(err) {
			return RatingSummary{ProductID: productID}, nil
		}
		return RatingSummary{}, err
	}
	return sum, nil
}
