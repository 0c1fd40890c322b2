package order

import (
	"context"

	"farmtable/internal/domain"
)

// Repository persists orders, their frozen line items and payment attempts.
type Repository interface {
	// Create writes the order and its items in one transaction. If any
	// cart item was already ordered it returns domain.ErrAlreadyExists.
	Create(ctx context.Context, in domain.NewOrder) (*domain.Order, error)
	// OrderedCartItems returns which of the given cart item ids some order
	// already captured.
	OrderedCartItems(ctx context.Context, cartItemIDs []string) (map[string]bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)

	// ApplyPayment moves payment_status out of pending exactly once.
	// transactionID is written only if the column is still empty.
	ApplyPayment(ctx context.Context, orderID string, status domain.PaymentStatus, transactionID *string) (domain.PaymentTransition, error)
	// UpdateStatus swaps the fulfillment status when it still equals from.
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (*domain.Order, error)

	RecordAttempt(ctx context.Context, a domain.PaymentAttempt) error
	// ResolveTransaction returns the order id an attempt was recorded for.
	ResolveTransaction(ctx context.Context, tranID string) (string, error)
}
