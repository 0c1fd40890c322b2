package chat

import (
	"context"

	"farmtable/internal/domain"
)

// Repository stores order chat messages.
type Repository interface {
	Post(ctx context.Context, m domain.Message) (*domain.Message, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Message, error)
}
