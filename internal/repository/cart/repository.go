package cart

import (
	"context"

	"farmtable/internal/domain"
)

// Repository persists buyer carts. Items already copied into an order are
// treated as consumed and never returned.
type Repository interface {
	GetOrCreate(ctx context.Context, buyerID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	DeleteItems(ctx context.Context, cartID string, itemIDs []string) error
}
