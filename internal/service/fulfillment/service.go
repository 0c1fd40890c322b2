// Package fulfillment lets a seller move an order through delivery.
package fulfillment

import (
	"context"
	"fmt"
	"io"
	"log"

	"farmtable/internal/domain"
	"farmtable/internal/events"
)

type orderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (*domain.Order, error)
}

type Service struct {
	orders    orderStore
	publisher events.Publisher
	logger    *log.Logger
}

func New(orders orderStore, publisher events.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{orders: orders, publisher: publisher, logger: logger}
}

// Advance moves the order to next. The stored status is left untouched when
// the move is rejected or another advance got there first.
func (s *Service) Advance(ctx context.Context, id domain.Identity, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if id.Role != domain.RoleSeller || id.UserID == "" || id.UserID != o.SellerID {
		return nil, domain.ErrUnauthorizedOrderAccess
	}
	if !next.Valid() || !domain.CanAdvance(o.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, next)
	}
	if domain.RequiresPayment(next) && o.PaymentStatus != domain.PaymentPaid {
		return nil, fmt.Errorf("%w: %s requires a paid order, payment is %s", domain.ErrInvalidTransition, next, o.PaymentStatus)
	}

	updated, err := s.orders.UpdateStatus(ctx, o.ID, o.Status, next)
	if err != nil {
		s.logger.Printf("fulfillment: order_id=%s %s -> %s error=%v", o.ID, o.Status, next, err)
		return nil, err
	}
	s.logger.Printf("fulfillment: order_id=%s %s -> %s", o.ID, o.Status, next)

	if err := s.publisher.Publish(ctx, events.New(events.StatusUpdated, *updated)); err != nil {
		s.logger.Printf("fulfillment: publish order_id=%s error=%v", o.ID, err)
	}
	return updated, nil
}
