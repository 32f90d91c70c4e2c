package users

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revforge/revforge/internal/shared"
)

type mockRepository struct {
	profiles map[int64]Profile
	wishlist map[int64]map[int64]bool
	views    map[int64]map[int64]int
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		profiles: map[int64]Profile{},
		wishlist: map[int64]map[int64]bool{},
		views:    map[int64]map[int64]int{},
		nextID:   1,
	}
}

func (m *mockRepository) GetProfile(_ context.Context, userID int64) (Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) UpdateProfile(_ context.Context, p Profile) (Profile, error) {
	if _, ok := m.profiles[p.UserID]; !ok {
		return Profile{}, shared.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.profiles[p.UserID] = p
	return p, nil
}

func (m *mockRepository) ApplyVendor(_ context.Context, userID int64, team string) (Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	now := time.Now()
	p.IsVendor = true
	p.VendorStatus = VendorPending
	p.VendorTeam = team
	p.VendorAppliedAt = &now
	p.VendorApprovedAt = nil
	m.profiles[userID] = p
	return p, nil
}

func (m *mockRepository) SetVendorStatus(_ context.Context, userID int64, status string) (Profile, error) {
	p, ok := m.profiles[userID]
	if !ok || !p.IsVendor {
		return Profile{}, shared.ErrNotFound
	}
	p.VendorStatus = status
	if status == VendorApproved {
		now := time.Now()
		p.VendorApprovedAt = &now
	} else {
		p.VendorApprovedAt = nil
	}
	m.profiles[userID] = p
	return p, nil
}

func (m *mockRepository) ListVendorApplications(_ context.Context, status string) ([]Profile, error) {
	var out []Profile
	for _, p := range m.profiles {
		if p.IsVendor && (status == "" || p.VendorStatus == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) AddWishlistItem(_ context.Context, userID, productID int64) error {
	if m.wishlist[userID] == nil {
		m.wishlist[userID] = map[int64]bool{}
	}
	m.wishlist[userID][productID] = true
	return nil
}

func (m *mockRepository) RemoveWishlistItem(_ context.Context, userID, productID int64) error {
	if !m.wishlist[userID][productID] {
		return shared.ErrNotFound
	}
	delete(m.wishlist[userID], productID)
	return nil
}

func (m *mockRepository) ListWishlist(_ context.Context, userID int64) ([]WishlistItem, error) {
	var out []WishlistItem
	for productID := range m.wishlist[userID] {
		m.nextID++
		out = append(out, WishlistItem{ID: m.nextID, ProductID: productID})
	}
	return out, nil
}

func (m *mockRepository) UpsertRecentView(_ context.Context, userID, productID int64) error {
	if m.views[userID] == nil {
		m.views[userID] = map[int64]int{}
	}
	m.views[userID][productID]++
	return nil
}

func (m *mockRepository) ListRecentViews(_ context.Context, userID int64, limit int) ([]RecentView, error) {
	var out []RecentView
	for productID, count := range m.views[userID] {
		if len(out) == limit {
			break
		}
		out = append(out, RecentView{ProductID: productID, ViewCount: count})
	}
	return out, nil
}

func newTestService(repo Repository) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo)
}

func TestUpdateProfile(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	p, err := svc.UpdateProfile(context.Background(), 1, UpdateProfileInput{
		Phone:      "5035551234",
		Address:    "12 Paddock Lane",
		City:       "Portland",
		PostalCode: "97201",
	})
	require.NoError(t, err)
	assert.Equal(t, "5035551234", p.Phone)
	assert.Equal(t, "Portland", p.City)
}

func TestUpdateProfileValidation(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	cases := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"phone too short", UpdateProfileInput{Phone: "12345"}},
		{"phone not numeric", UpdateProfileInput{Phone: "555-123-4567x"}},
		{"address too short", UpdateProfileInput{Address: "abc"}},
		{"postal too short", UpdateProfileInput{PostalCode: "12"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), 1, tc.in)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestVendorApplicationLifecycle(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	p, err := svc.ApplyForVendor(context.Background(), 1, "Garage 56 Performance")
	require.NoError(t, err)
	assert.True(t, p.IsVendor)
	assert.Equal(t, VendorPending, p.VendorStatus)
	assert.Equal(t, "Vendor (Pending)", p.VendorBadge())
	assert.False(t, p.IsVerifiedVendor())
	require.NotNil(t, p.VendorAppliedAt)

	// A second application while one is pending is rejected.
	_, err = svc.ApplyForVendor(context.Background(), 1, "Garage 56 Performance")
	assert.ErrorIs(t, err, shared.ErrConflict)

	approved, err := svc.DecideVendor(context.Background(), 99, 1, VendorApproved)
	require.NoError(t, err)
	assert.True(t, approved.IsVerifiedVendor())
	assert.Equal(t, "Verified Vendor", approved.VendorBadge())
	require.NotNil(t, approved.VendorApprovedAt)

	ok, err := svc.IsVerifiedVendor(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVendorRejectionAllowsReapplying(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	_, err := svc.ApplyForVendor(context.Background(), 1, "Slipstream Motorsport")
	require.NoError(t, err)

	rejected, err := svc.DecideVendor(context.Background(), 99, 1, VendorRejected)
	require.NoError(t, err)
	assert.Equal(t, "Vendor (Rejected)", rejected.VendorBadge())
	assert.False(t, rejected.IsVerifiedVendor())

	again, err := svc.ApplyForVendor(context.Background(), 1, "Slipstream Motorsport")
	require.NoError(t, err)
	assert.Equal(t, VendorPending, again.VendorStatus)
}

func TestDecideVendorValidatesStatus(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	_, err := svc.ApplyForVendor(context.Background(), 1, "Slipstream Motorsport")
	require.NoError(t, err)

	_, err = svc.DecideVendor(context.Background(), 99, 1, "waitlisted")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestVendorApplicationRequiresTeam(t *testing.T) {
	repo := newMockRepository()
	repo.profiles[1] = Profile{UserID: 1}
	svc := newTestService(repo)

	_, err := svc.ApplyForVendor(context.Background(), 1, "  ")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestIsVerifiedVendorWithoutProfile(t *testing.T) {
	svc := newTestService(newMockRepository())

	ok, err := svc.IsVerifiedVendor(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWishlistAddIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	require.NoError(t, svc.AddToWishlist(context.Background(), 1, 7))
	require.NoError(t, svc.AddToWishlist(context.Background(), 1, 7))

	items, err := svc.Wishlist(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWishlistRemove(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	require.NoError(t, svc.AddToWishlist(context.Background(), 1, 7))
	require.NoError(t, svc.RemoveFromWishlist(context.Background(), 1, 7))

	err := svc.RemoveFromWishlist(context.Background(), 1, 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordViewBumpsCount(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	require.NoError(t, svc.RecordView(context.Background(), 1, 7))
	require.NoError(t, svc.RecordView(context.Background(), 1, 7))
	require.NoError(t, svc.RecordView(context.Background(), 1, 8))

	views, err := svc.RecentViews(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	counts := map[int64]int{}
	for _, v := range views {
		counts[v.ProductID] = v.ViewCount
	}
	assert.Equal(t, 2, counts[7])
	assert.Equal(t, 1, counts[8])
}
