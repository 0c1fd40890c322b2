package order

import (
	"context"

	"farmtable/internal/domain"
)

type orderReader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}

type messageReader interface {
	ListByOrder(ctx context.Context, orderID string) ([]domain.Message, error)
}

// Service answers dashboard order queries scoped to the caller.
type Service struct {
	orders   orderReader
	messages messageReader
}

func New(orders orderReader, messages messageReader) *Service {
	return &Service{orders: orders, messages: messages}
}

// Get returns the order if the caller is its buyer, its seller or an admin.
func (s *Service) Get(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.CanView(*o) {
		return nil, domain.ErrUnauthorizedOrderAccess
	}
	return o, nil
}

// List returns the buyer's purchases, the seller's sales, or every order for admins.
func (s *Service) List(ctx context.Context, id domain.Identity) ([]domain.Order, error) {
	if id.UserID == "" {
		return nil, domain.ErrForbidden
	}
	switch id.Role {
	case domain.RoleBuyer:
		return s.orders.ListByBuyer(ctx, id.UserID)
	case domain.RoleSeller:
		return s.orders.ListBySeller(ctx, id.UserID)
	case domain.RoleAdmin:
		return s.orders.ListAll(ctx)
	}
	return nil, domain.ErrForbidden
}

// Messages returns the order's chat thread.
func (s *Service) Messages(ctx context.Context, id domain.Identity, orderID string) ([]domain.Message, error) {
	if _, err := s.Get(ctx, id, orderID); err != nil {
		return nil, err
	}
	return s.messages.ListByOrder(ctx, orderID)
}
