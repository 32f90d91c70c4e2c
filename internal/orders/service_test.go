package orders

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revforge/revforge/internal/cart"
	"github.com/revforge/revforge/internal/shared"
)

type mockRepository struct {
	orders     map[string]Order
	items      map[int64][]Item
	history    map[int64][]StatusChange
	stock      map[int64]int
	counters   map[string]int64
	shipping   map[int64]ShippingMethod
	payment    map[int64]PaymentMethod
	cleared    []int64
	nextID     int64
	collisions int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders:   map[string]Order{},
		items:    map[int64][]Item{},
		history:  map[int64][]StatusChange{},
		stock:    map[int64]int{},
		counters: map[string]int64{},
		shipping: map[int64]ShippingMethod{
			1: {ID: 1, Name: "Standard", Cost: 9.99, EstimatedDays: 5, IsActive: true},
			2: {ID: 2, Name: "Discontinued", Cost: 4.99, EstimatedDays: 9, IsActive: false},
		},
		payment: map[int64]PaymentMethod{
			1: {ID: 1, Name: "Card", Code: "card", IsActive: true},
		},
		nextID: 1,
	}
}

func (m *mockRepository) Transact(_ context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *mockRepository) NextOrderNumber(_ context.Context, prefix string, day time.Time) (string, error) {
	key := day.Format("2006-01-02")
	m.counters[key]++
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), m.counters[key]), nil
}

func (m *mockRepository) InsertOrder(_ context.Context, o Order) (Order, error) {
	if m.collisions > 0 {
		m.collisions--
		return Order{}, ErrNumberTaken
	}
	if _, exists := m.orders[o.Number]; exists {
		return Order{}, ErrNumberTaken
	}
	o.ID = m.nextID
	m.nextID++
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.Number] = o
	return o, nil
}

func (m *mockRepository) InsertItems(_ context.Context, orderID int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.ID = m.nextID
		m.nextID++
		it.OrderID = orderID
		out = append(out, it)
	}
	m.items[orderID] = out
	return out, nil
}

func (m *mockRepository) DecrementStock(_ context.Context, productID int64, quantity int) (int, error) {
	deducted := quantity
	if have := m.stock[productID]; have < deducted {
		deducted = have
	}
	m.stock[productID] -= deducted
	return deducted, nil
}

func (m *mockRepository) RestoreStock(_ context.Context, productID int64, quantity int) error {
	m.stock[productID] += quantity
	return nil
}

func (m *mockRepository) AppendHistory(_ context.Context, c StatusChange) error {
	c.CreatedAt = time.Now()
	m.history[c.OrderID] = append(m.history[c.OrderID], c)
	return nil
}

func (m *mockRepository) ClearCartItems(_ context.Context, cartID int64) error {
	m.cleared = append(m.cleared, cartID)
	return nil
}

func (m *mockRepository) GetByNumber(_ context.Context, number string) (Order, error) {
	o, ok := m.orders[number]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *mockRepository) ListByUser(_ context.Context, userID int64, _, _ int) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) ListItems(_ context.Context, orderID int64) ([]Item, error) {
	return m.items[orderID], nil
}

func (m *mockRepository) History(_ context.Context, orderID int64) ([]StatusChange, error) {
	return m.history[orderID], nil
}

func (m *mockRepository) UpdateOrderStatus(_ context.Context, orderID int64, status string, shippedAt, deliveredAt *time.Time) error {
	for number, o := range m.orders {
		if o.ID == orderID {
			o.Status = status
			if shippedAt != nil {
				o.ShippedAt = shippedAt
			}
			if deliveredAt != nil {
				o.DeliveredAt = deliveredAt
			}
			m.orders[number] = o
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) SetPaymentStatus(_ context.Context, orderID int64, status string) error {
	for number, o := range m.orders {
		if o.ID == orderID {
			o.PaymentStatus = status
			m.orders[number] = o
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) UpdateTotals(_ context.Context, orderID int64, subtotal, tax, discount, total float64) error {
	for number, o := range m.orders {
		if o.ID == orderID {
			o.Subtotal = subtotal
			o.Tax = tax
			o.DiscountAmount = discount
			o.Total = total
			m.orders[number] = o
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepository) ListShippingMethods(_ context.Context, activeOnly bool) ([]ShippingMethod, error) {
	var out []ShippingMethod
	for _, s := range m.shipping {
		if !activeOnly || s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRepository) GetShippingMethod(_ context.Context, id int64) (ShippingMethod, error) {
	s, ok := m.shipping[id]
	if !ok {
		return ShippingMethod{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) ListPaymentMethods(_ context.Context, activeOnly bool) ([]PaymentMethod, error) {
	var out []PaymentMethod
	for _, p := range m.payment {
		if !activeOnly || p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) GetPaymentMethod(_ context.Context, id int64) (PaymentMethod, error) {
	p, ok := m.payment[id]
	if !ok {
		return PaymentMethod{}, shared.ErrNotFound
	}
	return p, nil
}

type mockCartSource struct {
	cartID int64
	items  []cart.Item
}

func (m *mockCartSource) Snapshot(context.Context, int64) (int64, []cart.Item, error) {
	return m.cartID, m.items, nil
}

type recordingObserver struct {
	ok     int
	failed int
}

func (r *recordingObserver) ObserveCheckout(err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

type recordingNotifier struct {
	numbers []string
	totals  []float64
	err     error
}

func (r *recordingNotifier) OrderPlaced(_ context.Context, _ int64, number string, total float64) error {
	r.numbers = append(r.numbers, number)
	r.totals = append(r.totals, total)
	return r.err
}

func salePtr(v float64) *float64 { return &v }

func testCartItems() []cart.Item {
	return []cart.Item{
		{ProductID: 10, ProductName: "Akra Evo Exhaust", ProductSKU: "AKEX-10001", Quantity: 2, Price: 100, SalePrice: salePtr(80)},
		{ProductID: 11, ProductName: "Oil Filter", ProductSKU: "HIFI-10002", Quantity: 1, Price: 49.99},
	}
}

func validCheckout() CheckoutInput {
	return CheckoutInput{
		ShippingName:     "Alex Chen",
		ShippingPhone:    "5551234567",
		ShippingAddress:  "12 Paddock Lane",
		ShippingCity:     "Portland",
		ShippingPostal:   "97201",
		ShippingMethodID: 1,
		PaymentMethodID:  1,
	}
}

func newTestService(repo *mockRepository, carts CartSource, obs CheckoutObserver) *Service {
	svc := NewService(slog.New(slog.DiscardHandler), repo, carts, obs, nil, "RF", 0.08)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCheckoutQueuesConfirmation(t *testing.T) {
	repo := newMockRepository()
	repo.stock[10] = 5
	repo.stock[11] = 3
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	notifier := &recordingNotifier{}
	svc.notifier = notifier

	order, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)
	require.Len(t, notifier.numbers, 1)
	assert.Equal(t, order.Number, notifier.numbers[0])
	assert.Equal(t, order.Total, notifier.totals[0])
}

func TestCheckoutSurvivesConfirmationFailure(t *testing.T) {
	repo := newMockRepository()
	repo.stock[10] = 5
	repo.stock[11] = 3
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	svc.notifier = &recordingNotifier{err: fmt.Errorf("queue unavailable")}

	_, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)
}

func TestRecalculateTotals(t *testing.T) {
	repo := newMockRepository()
	repo.stock[10] = 5
	repo.stock[11] = 3
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	order, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)

	// Recomputing untouched lines reproduces the stored totals.
	same, err := svc.RecalculateTotals(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.Subtotal, same.Subtotal)
	assert.Equal(t, order.Total, same.Total)

	// A corrected line changes the derived figures.
	lines := repo.items[order.ID]
	lines[1].LineTotal = 0
	repo.items[order.ID] = lines

	updated, err := svc.RecalculateTotals(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, 160.0, updated.Subtotal)
	assert.Equal(t, 12.8, updated.Tax)
	assert.Equal(t, 182.79, updated.Total)
	stored, _ := repo.GetByNumber(context.Background(), order.Number)
	assert.Equal(t, 182.79, stored.Total)

	// An applied discount comes off the recomputed total.
	stored.DiscountAmount = 20
	repo.orders[order.Number] = stored

	discounted, err := svc.RecalculateTotals(context.Background(), order.Number)
	require.NoError(t, err)
	assert.Equal(t, 20.0, discounted.DiscountAmount)
	assert.Equal(t, 162.79, discounted.Total)
}

func TestCheckoutEmptyCart(t *testing.T) {
	repo := newMockRepository()
	obs := &recordingObserver{}
	svc := newTestService(repo, &mockCartSource{cartID: 5}, obs)

	_, err := svc.Checkout(context.Background(), 1, validCheckout())
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, 1, obs.failed)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	repo := newMockRepository()
	repo.stock[10] = 5
	repo.stock[11] = 3
	obs := &recordingObserver{}
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, obs)

	order, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^RF-20260314-\d{4}$`), order.Number)
	assert.Equal(t, "RF-20260314-0001", order.Number)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentPending, order.PaymentStatus)

	// 2 x 80.00 + 1 x 49.99 = 209.99, tax 16.80, shipping 9.99
	assert.InDelta(t, 209.99, order.Subtotal, 0.001)
	assert.InDelta(t, 16.80, order.Tax, 0.001)
	assert.InDelta(t, 9.99, order.ShippingCost, 0.001)
	assert.InDelta(t, 0.0, order.DiscountAmount, 0.001)
	assert.InDelta(t, 236.78, order.Total, 0.001)

	// Method names ride along as text; editing the method rows later
	// cannot reach into a placed order.
	assert.Equal(t, "Standard", order.ShippingMethodName)
	assert.Equal(t, "Card", order.PaymentMethodName)

	require.Len(t, order.Items, 2)
	assert.InDelta(t, 80.0, order.Items[0].UnitPrice, 0.001)
	assert.Equal(t, "AKEX-10001", order.Items[0].ProductSKU)

	assert.Equal(t, 3, repo.stock[10])
	assert.Equal(t, 2, repo.stock[11])

	history := repo.history[order.ID]
	require.Len(t, history, 1)
	assert.Equal(t, StatusPending, history[0].Status)

	assert.Equal(t, []int64{5}, repo.cleared)
	assert.Equal(t, 1, obs.ok)
}

func TestCheckoutWithoutMethods(t *testing.T) {
	repo := newMockRepository()
	repo.stock[10] = 5
	repo.stock[11] = 3
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	in := validCheckout()
	in.ShippingMethodID = 0
	in.PaymentMethodID = 0

	order, err := svc.Checkout(context.Background(), 1, in)
	require.NoError(t, err)

	assert.Empty(t, order.ShippingMethodName)
	assert.Empty(t, order.PaymentMethodName)
	assert.InDelta(t, 0.0, order.ShippingCost, 0.001)
	assert.InDelta(t, 226.79, order.Total, 0.001)
}

func TestCheckoutNumbersIncrementWithinDay(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	first, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)
	second, err := svc.Checkout(context.Background(), 2, validCheckout())
	require.NoError(t, err)

	assert.Equal(t, "RF-20260314-0001", first.Number)
	assert.Equal(t, "RF-20260314-0002", second.Number)
}

func TestCheckoutRetriesNumberCollision(t *testing.T) {
	repo := newMockRepository()
	repo.collisions = 2
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	order, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)
	assert.Equal(t, "RF-20260314-0003", order.Number)
}

func TestCheckoutGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMockRepository()
	repo.collisions = 10
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	_, err := svc.Checkout(context.Background(), 1, validCheckout())
	assert.ErrorIs(t, err, shared.ErrTransient)
	assert.NotErrorIs(t, err, ErrNumberTaken)
}

func TestCheckoutRejectsInactiveShippingMethod(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)

	in := validCheckout()
	in.ShippingMethodID = 2
	_, err := svc.Checkout(context.Background(), 1, in)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestCheckoutValidation(t *testing.T) {
	svc := newTestService(newMockRepository(), &mockCartSource{}, nil)

	in := validCheckout()
	in.ShippingAddress = "x"
	_, err := svc.Checkout(context.Background(), 1, in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func placeOrder(t *testing.T, repo *mockRepository, svc *Service, userID int64) Order {
	t.Helper()
	repo.stock[10] = 5
	repo.stock[11] = 3
	order, err := svc.Checkout(context.Background(), userID, validCheckout())
	require.NoError(t, err)
	return order
}

func TestCancelPendingOrderRestoresStock(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	cancelled, err := svc.Cancel(context.Background(), shared.Identity{UserID: 1}, order.Number, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, repo.stock[10])
	assert.Equal(t, 3, repo.stock[11])

	history := repo.history[order.ID]
	require.Len(t, history, 2)
	assert.Equal(t, StatusCancelled, history[1].Status)
	assert.Equal(t, "changed my mind", history[1].Comment)
}

func TestCancelOversoldOrderRestoresOnlyDeductedStock(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	// Only one unit left for a line that orders two; the decrement floors
	// at zero and must remember it took just one unit.
	repo.stock[10] = 1
	repo.stock[11] = 3

	order, err := svc.Checkout(context.Background(), 1, validCheckout())
	require.NoError(t, err)
	assert.Equal(t, 0, repo.stock[10])
	assert.Equal(t, 2, repo.stock[11])

	lines := repo.items[order.ID]
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].StockDeducted)
	assert.Equal(t, 1, lines[1].StockDeducted)

	_, err = svc.Cancel(context.Background(), shared.Identity{UserID: 1}, order.Number, "oversold")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.stock[10])
	assert.Equal(t, 3, repo.stock[11])
}

func TestCancelRejectedAfterProcessing(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	_, err := svc.UpdateStatus(context.Background(), 99, order.Number, StatusProcessing, "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), shared.Identity{UserID: 1}, order.Number, "")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	_, err := svc.Get(context.Background(), shared.Identity{UserID: 2}, order.Number)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(context.Background(), shared.Identity{UserID: 2, IsStaff: true}, order.Number)
	assert.NoError(t, err)
}

func TestUpdateStatusStampsTimestamps(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	_, err := svc.UpdateStatus(context.Background(), 99, order.Number, StatusProcessing, "")
	require.NoError(t, err)
	shipped, err := svc.UpdateStatus(context.Background(), 99, order.Number, StatusShipped, "picked up by carrier")
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedAt)

	delivered, err := svc.UpdateStatus(context.Background(), 99, order.Number, StatusDelivered, "")
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.NotNil(t, delivered.ShippedAt)

	history := repo.history[order.ID]
	assert.Len(t, history, 4)
}

func TestUpdateStatusRejectsBackwardMoves(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	_, err := svc.UpdateStatus(context.Background(), 99, order.Number, StatusProcessing, "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 99, order.Number, StatusPending, "")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.UpdateStatus(context.Background(), 99, order.Number, "misplaced", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusDelivered, StatusRefunded, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestTrackPayload(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &mockCartSource{cartID: 5, items: testCartItems()}, nil)
	order := placeOrder(t, repo, svc, 1)

	info, err := svc.Track(context.Background(), shared.Identity{UserID: 1}, order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.Number, info.OrderNumber)
	assert.Equal(t, "Pending", info.StatusDisplay)
	assert.True(t, info.CanCancel)
	assert.Len(t, info.History, 1)
}
