package product

import (
	"context"

	"farmtable/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetMany returns the products that still exist, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
