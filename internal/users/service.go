package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/revforge/revforge/internal/shared"
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

type Service struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// UpdateProfileInput carries the editable profile fields. Empty strings
// clear the stored value.
type UpdateProfileInput struct {
	Phone      string
	Address    string
	City       string
	PostalCode string
	AvatarURL  string
}

func validateProfile(in UpdateProfileInput) error {
	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		return fmt.Errorf("%w: phone must be 10 to 15 digits", shared.ErrValidation)
	}
	if in.Address != "" && (len(in.Address) < 5 || len(in.Address) > 255) {
		return fmt.Errorf("%w: address must be between 5 and 255 characters", shared.ErrValidation)
	}
	if in.PostalCode != "" && (len(in.PostalCode) < 3 || len(in.PostalCode) > 10) {
		return fmt.Errorf("%w: postal code must be between 3 and 10 characters", shared.ErrValidation)
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (Profile, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	if err := validateProfile(in); err != nil {
		return Profile{}, err
	}
	return s.repo.UpdateProfile(ctx, Profile{
		UserID:     userID,
		Phone:      in.Phone,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		AvatarURL:  strings.TrimSpace(in.AvatarURL),
	})
}

// ApplyForVendor turns the account into a vendor applicant. Re-applying
// after a rejection resets the application to pending; an approved vendor
// cannot apply again.
func (s *Service) ApplyForVendor(ctx context.Context, userID int64, team string) (Profile, error) {
	team = strings.TrimSpace(team)
	if team == "" {
		return Profile{}, fmt.Errorf("%w: vendor team name is required", shared.ErrValidation)
	}
	if len(team) > 100 {
		return Profile{}, fmt.Errorf("%w: vendor team name must be at most 100 characters", shared.ErrValidation)
	}
	current, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if current.IsVendor && current.VendorStatus != VendorRejected {
		return Profile{}, fmt.Errorf("%w: a vendor application is already on file", shared.ErrConflict)
	}
	p, err := s.repo.ApplyVendor(ctx, userID, team)
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("vendor application filed", slog.Int64("user_id", userID), slog.String("team", team))
	return p, nil
}

// DecideVendor approves or rejects a pending vendor application.
func (s *Service) DecideVendor(ctx context.Context, staffID, userID int64, status string) (Profile, error) {
	if status != VendorApproved && status != VendorRejected {
		return Profile{}, fmt.Errorf("%w: vendor status must be %q or %q", shared.ErrValidation, VendorApproved, VendorRejected)
	}
	p, err := s.repo.SetVendorStatus(ctx, userID, status)
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("vendor application decided",
		slog.Int64("user_id", userID), slog.Int64("staff_id", staffID), slog.String("status", status))
	return p, nil
}

func (s *Service) VendorApplications(ctx context.Context, status string) ([]Profile, error) {
	if status != "" && status != VendorPending && status != VendorApproved && status != VendorRejected {
		return nil, fmt.Errorf("%w: unknown vendor status %q", shared.ErrValidation, status)
	}
	return s.repo.ListVendorApplications(ctx, status)
}

// IsVerifiedVendor reports whether the account holds an approved vendor
// application. Accounts without a profile simply are not vendors.
func (s *Service) IsVerifiedVendor(ctx context.Context, userID int64) (bool, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsVerifiedVendor(), nil
}

// AddToWishlist saves a product. Saving an already-saved product is a no-op.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID int64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product id is required", shared.ErrValidation)
	}
	return s.repo.AddWishlistItem(ctx, userID, productID)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	return s.repo.RemoveWishlistItem(ctx, userID, productID)
}

func (s *Service) Wishlist(ctx context.Context, userID int64) ([]WishlistItem, error) {
	return s.repo.ListWishlist(ctx, userID)
}

// RecordView notes a product detail visit for the recently-viewed feed.
// Failures are the caller's to log; browsing never breaks on this.
func (s *Service) RecordView(ctx context.Context, userID, productID int64) error {
	return s.repo.UpsertRecentView(ctx, userID, productID)
}

func (s *Service) RecentViews(ctx context.Context, userID int64) ([]RecentView, error) {
	return s.repo.ListRecentViews(ctx, userID, recentViewLimit)
}
