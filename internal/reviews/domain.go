package reviews

import (
	"time"

	"github.com/revforge/revforge/internal/shared"
)

// Review is a user's rating of a product. One review per (user, product);
// re-submitting updates the existing row.
type Review struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	ProductID          int64     `json:"product_id"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	Pros               string    `json:"pros,omitempty"`
	Cons               string    `json:"cons,omitempty"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	IsApproved         bool      `json:"is_approved"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RatingSummary is the denormalized per-product aggregate, recomputed in full
// from approved reviews on every write. Treat it as a materialized view:
// never update it incrementally.
type RatingSummary struct {
	ProductID      int64     `json:"product_id"`
	AverageRating  float64   `json:"average_rating"`
	TotalReviews   int       `json:"total_reviews"`
	FiveStarCount  int       `json:"five_star_count"`
	FourStarCount  int       `json:"four_star_count"`
	ThreeStarCount int       `json:"three_star_count"`
	TwoStarCount   int       `json:"two_star_count"`
	OneStarCount   int       `json:"one_star_count"`
	LastUpdated    time.Time `json:"last_updated"`
}

// RatingPercentage is the share of 4 and 5 star reviews, rounded to 1 decimal.
func (s RatingSummary) RatingPercentage() float64 {
	if s.TotalReviews == 0 {
		return 0
	}
	positive := s.FourStarCount + s.FiveStarCount
	return shared.Round1(float64(positive) / float64(s.TotalReviews) * 100)
}

// summarize folds a set of ratings into a summary. Pure so the aggregation is
// trivially idempotent: the same ratings always produce the same summary.
func summarize(productID int64, ratings []int) RatingSummary {
	s := RatingSummary{ProductID: productID}
	if len(ratings) == 0 {
		return s
	}
	sum := 0
	for _, r := range ratings {
		sum += r
		switch r {
		case 5:
			s.FiveStarCount++
		case 4:
			s.FourStarCount++
		case 3:
			s.ThreeStarCount++
		case 2:
			s.TwoStarCount++
		case 1:
			s.OneStarCount++
		}
	}
	s.TotalReviews = len(ratings)
	s.AverageRating = shared.Round2(float64(sum) / float64(len(ratings)))
	return s
}
