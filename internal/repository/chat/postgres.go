package chat

import (
	"context"
	"io"
	"log"

	"farmtable/internal/domain"
	"farmtable/internal/repository/pgid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Post(ctx context.Context, m domain.Message) (*domain.Message, error) {
	const q = `
INSERT INTO messages (order_id, sender_id, receiver_id, body)
VALUES ($1, $2, $3, $4)
RETURNING id::text, created_at
`
	res := m
	if err := r.pool.QueryRow(ctx, q, m.OrderID, m.SenderID, m.ReceiverID, m.Body).Scan(&res.ID, &res.CreatedAt); err != nil {
		r.logger.Printf("chat repo: post order_id=%s error=%v", m.OrderID, err)
		return nil, err
	}
	return &res, nil
}

func (r *postgresRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Message, error) {
	uid, ok := pgid.Parse(orderID)
	if !ok {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, sender_id::text, receiver_id::text, body, created_at
FROM messages
WHERE order_id = $1
ORDER BY created_at ASC
`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
