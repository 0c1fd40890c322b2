// Package checkout turns a buyer's cart into one order per seller.
//
// Each seller's order is written in its own transaction. When one of them
// fails the others stay committed; the failed seller is reported and its
// lines remain in the cart so the buyer can retry.
package checkout

import (
	"context"
	"errors"
	"io"
	"log"

	"farmtable/internal/domain"
	"farmtable/internal/events"
)

type cartStore interface {
	GetOrCreate(ctx context.Context, buyerID string) (*domain.Cart, error)
	DeleteItems(ctx context.Context, cartID string, itemIDs []string) error
}

type catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type orderWriter interface {
	Create(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	OrderedCartItems(ctx context.Context, cartItemIDs []string) (map[string]bool, error)
}

// Result describes what one checkout produced.
type Result struct {
	Orders        []domain.Order `json:"orders"`
	Skipped       []Skipped      `json:"skipped"`
	FailedSellers []string       `json:"failedSellers"`
}

type Service struct {
	carts     cartStore
	catalog   catalog
	profiles  profileStore
	orders    orderWriter
	publisher events.Publisher
	currency  string
	logger    *log.Logger
}

func New(carts cartStore, catalog catalog, profiles profileStore, orders orderWriter, publisher events.Publisher, currency string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		carts:     carts,
		catalog:   catalog,
		profiles:  profiles,
		orders:    orders,
		publisher: publisher,
		currency:  currency,
		logger:    logger,
	}
}

// Checkout orders everything in the caller's cart.
func (s *Service) Checkout(ctx context.Context, id domain.Identity) (*Result, error) {
	if id.UserID == "" || id.Role != domain.RoleBuyer {
		return nil, domain.ErrForbidden
	}

	cart, err := s.carts.GetOrCreate(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	delivery, err := s.deliveryInfo(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	specs, skipped := Split(id.UserID, s.currency, cart.Items, products, delivery)
	for _, sk := range skipped {
		s.logger.Printf("checkout: skip buyer_id=%s cart_item_id=%s product_id=%s reason=%q", id.UserID, sk.CartItemID, sk.ProductID, sk.Reason)
	}
	if len(specs) == 0 {
		return nil, domain.ErrEmptyCart
	}

	res := &Result{Skipped: skipped}
	var consumed []string
	for _, spec := range specs {
		o, stale, err := s.createOrder(ctx, spec)
		consumed = append(consumed, stale...)
		switch {
		case err != nil:
			s.logger.Printf("checkout: create order buyer_id=%s seller_id=%s error=%v", id.UserID, spec.SellerID, err)
			res.FailedSellers = append(res.FailedSellers, spec.SellerID)
		case o != nil:
			res.Orders = append(res.Orders, *o)
			consumed = append(consumed, cartItemIDs(o.Items)...)
		}
	}

	if len(consumed) > 0 {
		if err := s.carts.DeleteItems(ctx, cart.ID, consumed); err != nil {
			s.logger.Printf("checkout: clear cart buyer_id=%s error=%v", id.UserID, err)
		}
	}

	for _, o := range res.Orders {
		if err := s.publisher.Publish(ctx, events.New(events.OrderCreated, o)); err != nil {
			s.logger.Printf("checkout: publish order_id=%s error=%v", o.ID, err)
		}
	}

	if len(res.Orders) == 0 {
		if len(res.FailedSellers) > 0 {
			return nil, domain.ErrCheckoutFailed
		}
		return nil, domain.ErrEmptyCart
	}
	s.logger.Printf("checkout: buyer_id=%s orders=%d skipped=%d failed=%d", id.UserID, len(res.Orders), len(res.Skipped), len(res.FailedSellers))
	return res, nil
}

func (s *Service) deliveryInfo(ctx context.Context, buyerID string) (domain.DeliveryInfo, error) {
	p, err := s.profiles.GetByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("checkout: no profile buyer_id=%s, ordering without delivery info", buyerID)
			return domain.DeliveryInfo{}, nil
		}
		return domain.DeliveryInfo{}, err
	}
	return p.Delivery(), nil
}

// createOrder writes one seller's order. When an earlier checkout already
// ordered some of its lines, those cart rows are returned as stale and the
// order is retried once with the lines nobody captured. A nil order with a
// nil error means every line was stale.
func (s *Service) createOrder(ctx context.Context, spec domain.NewOrder) (*domain.Order, []string, error) {
	o, createErr := s.orders.Create(ctx, spec)
	if !errors.Is(createErr, domain.ErrAlreadyExists) {
		return o, nil, createErr
	}

	ordered, err := s.orders.OrderedCartItems(ctx, cartItemIDs(spec.Items))
	if err != nil {
		return nil, nil, err
	}
	var stale []string
	remaining := make([]domain.OrderItem, 0, len(spec.Items))
	for _, it := range spec.Items {
		if ordered[it.CartItemID] {
			stale = append(stale, it.CartItemID)
			continue
		}
		remaining = append(remaining, it)
	}
	s.logger.Printf("checkout: stale cart lines seller_id=%s stale=%d remaining=%d", spec.SellerID, len(stale), len(remaining))
	if len(stale) == 0 {
		return nil, nil, createErr
	}
	if len(remaining) == 0 {
		return nil, stale, nil
	}

	spec.Items = remaining
	o, err = s.orders.Create(ctx, spec)
	if err != nil {
		return nil, stale, err
	}
	return o, stale, nil
}

func cartItemIDs(items []domain.OrderItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.CartItemID)
	}
	return ids
}
