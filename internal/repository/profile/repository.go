package profile

import (
	"context"

	"farmtable/internal/domain"
)

// Repository persists and fetches marketplace profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	// Upsert creates or refreshes a profile keyed by email.
	Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
}
