package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"farmtable/internal/domain"
	"farmtable/internal/events"
)

type memoryCarts struct {
	cart      *domain.Cart
	deleted   []string
	deleteErr error
}

func (m *memoryCarts) GetOrCreate(_ context.Context, buyerID string) (*domain.Cart, error) {
	if m.cart == nil {
		m.cart = &domain.Cart{ID: "cart-1", BuyerID: buyerID}
	}
	return m.cart, nil
}

func (m *memoryCarts) DeleteItems(_ context.Context, _ string, ids []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, ids...)
	keep := m.cart.Items[:0]
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	for _, it := range m.cart.Items {
		if !drop[it.ID] {
			keep = append(keep, it)
		}
	}
	m.cart.Items = keep
	return nil
}

type memoryCatalog map[string]domain.Product

func (m memoryCatalog) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubProfiles struct {
	profile *domain.Profile
	err     error
}

func (s stubProfiles) GetByID(_ context.Context, _ string) (*domain.Profile, error) {
	return s.profile, s.err
}

type memoryOrders struct {
	created  []domain.Order
	failFor  map[string]error
	consumed map[string]bool
}

func (m *memoryOrders) Create(_ context.Context, in domain.NewOrder) (*domain.Order, error) {
	if err := m.failFor[in.SellerID]; err != nil {
		return nil, err
	}
	if m.consumed == nil {
		m.consumed = map[string]bool{}
	}
	for _, it := range in.Items {
		if m.consumed[it.CartItemID] {
			return nil, domain.ErrAlreadyExists
		}
	}
	for _, it := range in.Items {
		m.consumed[it.CartItemID] = true
	}
	o := domain.Order{
		ID:              fmt.Sprintf("order-%d", len(m.created)+1),
		BuyerID:         in.BuyerID,
		SellerID:        in.SellerID,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		TotalCents:      in.TotalCents(),
		Currency:        in.Currency,
		DeliveryAddress: in.DeliveryAddress,
		Phone:           in.Phone,
		Items:           in.Items,
	}
	m.created = append(m.created, o)
	return &o, nil
}

func (m *memoryOrders) OrderedCartItems(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if m.consumed[id] {
			out[id] = true
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

var buyer = domain.Identity{UserID: "buyer-1", Role: domain.RoleBuyer}

func buyerProfile() stubProfiles {
	return stubProfiles{profile: &domain.Profile{ID: "buyer-1", FullName: "Nadia", Address: "House 7, Dhaka", Phone: "01711111111"}}
}

func TestCheckoutSplitsBySeller(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", BuyerID: "buyer-1", Items: []domain.CartItem{
		{ID: "ci-a", ProductID: "A", Quantity: 2},
		{ID: "ci-b", ProductID: "B", Quantity: 1},
	}}}
	catalog := memoryCatalog{
		"A": {ID: "A", SellerID: "S1", Name: "Tomato", PriceCents: 50, Unit: "kg"},
		"B": {ID: "B", SellerID: "S2", Name: "Honey", PriceCents: 100, Unit: "jar"},
	}
	orders := &memoryOrders{}
	pub := &recordingPublisher{}
	svc := New(carts, catalog, buyerProfile(), orders, pub, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(res.Orders))
	}
	if res.Orders[0].SellerID != "S1" || res.Orders[0].TotalCents != 100 {
		t.Fatalf("unexpected first order %+v", res.Orders[0])
	}
	if res.Orders[1].SellerID != "S2" || res.Orders[1].TotalCents != 100 {
		t.Fatalf("unexpected second order %+v", res.Orders[1])
	}
	if res.Orders[0].DeliveryAddress != "House 7, Dhaka" || res.Orders[0].Phone != "01711111111" {
		t.Fatalf("expected delivery info captured, got %+v", res.Orders[0])
	}
	if len(carts.cart.Items) != 0 {
		t.Fatalf("expected cart emptied, got %+v", carts.cart.Items)
	}
	if len(pub.events) != 2 || pub.events[0].Kind != events.OrderCreated {
		t.Fatalf("expected two order.created events, got %+v", pub.events)
	}
}

func TestCheckoutTotalsMatchCart(t *testing.T) {
	var items []domain.CartItem
	catalog := memoryCatalog{}
	var want int64
	for i := 0; i < 9; i++ {
		pid := fmt.Sprintf("p%d", i)
		price := int64(25 * (i + 1))
		qty := i%3 + 1
		catalog[pid] = domain.Product{ID: pid, SellerID: fmt.Sprintf("seller-%d", i%4), PriceCents: price}
		items = append(items, domain.CartItem{ID: "ci-" + pid, ProductID: pid, Quantity: qty})
		want += price * int64(qty)
	}
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: items}}
	svc := New(carts, catalog, buyerProfile(), &memoryOrders{}, nil, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Orders) != 4 {
		t.Fatalf("expected one order per seller, got %d", len(res.Orders))
	}
	var got int64
	for _, o := range res.Orders {
		got += o.TotalCents
		if o.TotalCents != domain.SumItems(o.Items) {
			t.Fatalf("order total %d does not match items", o.TotalCents)
		}
	}
	if got != want {
		t.Fatalf("expected total %d, got %d", want, got)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	orders := &memoryOrders{}
	svc := New(&memoryCarts{}, memoryCatalog{}, buyerProfile(), orders, nil, "BDT", nil)
	if _, err := svc.Checkout(context.Background(), buyer); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if len(orders.created) != 0 {
		t.Fatalf("expected no orders")
	}
}

func TestCheckoutSkipsUnresolvableLines(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{
		{ID: "ci-a", ProductID: "A", Quantity: 1},
		{ID: "ci-orphan", ProductID: "O", Quantity: 1},
		{ID: "ci-gone", ProductID: "G", Quantity: 1},
	}}}
	catalog := memoryCatalog{
		"A": {ID: "A", SellerID: "S1", PriceCents: 10},
		"O": {ID: "O", PriceCents: 10},
	}
	svc := New(carts, catalog, buyerProfile(), &memoryOrders{}, nil, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Orders) != 1 || len(res.Skipped) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(carts.cart.Items) != 2 {
		t.Fatalf("expected skipped lines kept in cart, got %+v", carts.cart.Items)
	}
}

func TestCheckoutAllLinesSkipped(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{{ID: "ci", ProductID: "gone", Quantity: 1}}}}
	svc := New(carts, memoryCatalog{}, buyerProfile(), &memoryOrders{}, nil, "BDT", nil)
	if _, err := svc.Checkout(context.Background(), buyer); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutSiblingFailureKeepsOthers(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{
		{ID: "ci-a", ProductID: "A", Quantity: 1},
		{ID: "ci-b", ProductID: "B", Quantity: 1},
	}}}
	catalog := memoryCatalog{
		"A": {ID: "A", SellerID: "S1", PriceCents: 10},
		"B": {ID: "B", SellerID: "S2", PriceCents: 20},
	}
	orders := &memoryOrders{failFor: map[string]error{"S2": errors.New("insert failed")}}
	svc := New(carts, catalog, buyerProfile(), orders, nil, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Orders) != 1 || len(res.FailedSellers) != 1 || res.FailedSellers[0] != "S2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(carts.cart.Items) != 1 || carts.cart.Items[0].ID != "ci-b" {
		t.Fatalf("expected failed seller's line kept, got %+v", carts.cart.Items)
	}
}

func TestCheckoutEverySellerFails(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{{ID: "ci-a", ProductID: "A", Quantity: 1}}}}
	catalog := memoryCatalog{"A": {ID: "A", SellerID: "S1", PriceCents: 10}}
	orders := &memoryOrders{failFor: map[string]error{"S1": errors.New("db down")}}
	svc := New(carts, catalog, buyerProfile(), orders, nil, "BDT", nil)
	if _, err := svc.Checkout(context.Background(), buyer); !errors.Is(err, domain.ErrCheckoutFailed) {
		t.Fatalf("expected ErrCheckoutFailed, got %v", err)
	}
}

func TestCheckoutStaleCartRowsAreIgnored(t *testing.T) {
	items := []domain.CartItem{{ID: "ci-a", ProductID: "A", Quantity: 1}}
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: items}, deleteErr: errors.New("delete failed")}
	catalog := memoryCatalog{"A": {ID: "A", SellerID: "S1", PriceCents: 10}}
	orders := &memoryOrders{}
	svc := New(carts, catalog, buyerProfile(), orders, nil, "BDT", nil)

	if _, err := svc.Checkout(context.Background(), buyer); err != nil {
		t.Fatalf("cart delete failure must not fail checkout: %v", err)
	}
	if len(carts.cart.Items) != 1 {
		t.Fatalf("expected stale row left behind")
	}

	carts.deleteErr = nil
	if _, err := svc.Checkout(context.Background(), buyer); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected stale rows to yield ErrEmptyCart, got %v", err)
	}
	if len(orders.created) != 1 {
		t.Fatalf("expected no duplicate order, got %d", len(orders.created))
	}
	if len(carts.cart.Items) != 0 {
		t.Fatalf("expected stale row cleaned up, got %+v", carts.cart.Items)
	}
}

func TestCheckoutKeepsFreshLinesBesideStaleOnes(t *testing.T) {
	// ci-x was ordered by a concurrent checkout; ci-y was added afterwards
	// for the same seller and never ordered.
	items := []domain.CartItem{
		{ID: "ci-x", ProductID: "X", Quantity: 1},
		{ID: "ci-y", ProductID: "Y", Quantity: 3},
	}
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: items}}
	catalog := memoryCatalog{
		"X": {ID: "X", SellerID: "S1", PriceCents: 10},
		"Y": {ID: "Y", SellerID: "S1", PriceCents: 20},
	}
	orders := &memoryOrders{consumed: map[string]bool{"ci-x": true}}
	pub := &recordingPublisher{}
	svc := New(carts, catalog, buyerProfile(), orders, pub, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(res.Orders) != 1 || len(res.Orders[0].Items) != 1 || res.Orders[0].Items[0].CartItemID != "ci-y" {
		t.Fatalf("expected one order for the fresh line, got %+v", res.Orders)
	}
	if res.Orders[0].TotalCents != 60 {
		t.Fatalf("expected total 60, got %d", res.Orders[0].TotalCents)
	}
	if len(carts.cart.Items) != 0 {
		t.Fatalf("expected cart emptied, got %+v", carts.cart.Items)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one order.created event, got %d", len(pub.events))
	}
}

func TestCheckoutRetryFailureLeavesFreshLines(t *testing.T) {
	items := []domain.CartItem{
		{ID: "ci-x", ProductID: "X", Quantity: 1},
		{ID: "ci-y", ProductID: "Y", Quantity: 1},
		{ID: "ci-z", ProductID: "Z", Quantity: 1},
	}
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: items}}
	catalog := memoryCatalog{
		"X": {ID: "X", SellerID: "S1", PriceCents: 10},
		"Y": {ID: "Y", SellerID: "S1", PriceCents: 20},
		"Z": {ID: "Z", SellerID: "S2", PriceCents: 30},
	}
	orders := &flakyOrders{memoryOrders: memoryOrders{consumed: map[string]bool{"ci-x": true}}, failRetryFor: "S1"}
	svc := New(carts, catalog, buyerProfile(), orders, nil, "BDT", nil)

	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(res.FailedSellers) != 1 || res.FailedSellers[0] != "S1" {
		t.Fatalf("expected S1 reported failed, got %v", res.FailedSellers)
	}
	if len(carts.cart.Items) != 1 || carts.cart.Items[0].ID != "ci-y" {
		t.Fatalf("expected only the unordered line left, got %+v", carts.cart.Items)
	}
}

// flakyOrders fails the retried create for one seller.
type flakyOrders struct {
	memoryOrders
	failRetryFor string
	attempts     map[string]int
}

func (f *flakyOrders) Create(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[in.SellerID]++
	if in.SellerID == f.failRetryFor && f.attempts[in.SellerID] > 1 {
		return nil, errors.New("connection reset")
	}
	return f.memoryOrders.Create(ctx, in)
}

func TestCheckoutWithoutProfile(t *testing.T) {
	carts := &memoryCarts{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{{ID: "ci-a", ProductID: "A", Quantity: 1}}}}
	catalog := memoryCatalog{"A": {ID: "A", SellerID: "S1", PriceCents: 10}}
	svc := New(carts, catalog, stubProfiles{err: domain.ErrNotFound}, &memoryOrders{}, nil, "BDT", nil)
	res, err := svc.Checkout(context.Background(), buyer)
	if err != nil || len(res.Orders) != 1 {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
}

func TestCheckoutRequiresBuyer(t *testing.T) {
	svc := New(&memoryCarts{}, memoryCatalog{}, buyerProfile(), &memoryOrders{}, nil, "BDT", nil)
	if _, err := svc.Checkout(context.Background(), domain.Identity{UserID: "s", Role: domain.RoleSeller}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSplitKeepsFirstSeenSellerOrder(t *testing.T) {
	items := []domain.CartItem{
		{ID: "1", ProductID: "x", Quantity: 1},
		{ID: "2", ProductID: "y", Quantity: 2},
		{ID: "3", ProductID: "z", Quantity: 3},
	}
	catalog := map[string]domain.Product{
		"x": {ID: "x", SellerID: "S2", PriceCents: 5},
		"y": {ID: "y", SellerID: "S1", PriceCents: 7},
		"z": {ID: "z", SellerID: "S2", PriceCents: 11},
	}
	specs, skipped := Split("b", "BDT", items, catalog, domain.DeliveryInfo{Address: "addr", Phone: "ph"})
	if len(skipped) != 0 || len(specs) != 2 {
		t.Fatalf("unexpected split %+v %+v", specs, skipped)
	}
	if specs[0].SellerID != "S2" || len(specs[0].Items) != 2 || specs[0].TotalCents() != 5+33 {
		t.Fatalf("unexpected first spec %+v", specs[0])
	}
	if specs[1].SellerID != "S1" || specs[1].TotalCents() != 14 || specs[1].Phone != "ph" {
		t.Fatalf("unexpected second spec %+v", specs[1])
	}
}
