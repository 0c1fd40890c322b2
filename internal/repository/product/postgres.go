package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"farmtable/internal/domain"
	"farmtable/internal/repository/pgid"
	"github.com/jackc/pgx/v5"
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

const selectProduct = `
SELECT id::text, COALESCE(seller_id::text, ''), key, name, COALESCE(description, ''), price_cents, unit, created_at
FROM products
`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+`ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("product repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	uid, ok := pgid.Parse(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, selectProduct+`WHERE id = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	uids := pgid.ParseAll(ids)
	if len(uids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, selectProduct+`WHERE id = ANY($1::uuid[])`, uids)
	if err != nil {
		r.logger.Printf("product repo: get many count=%d error=%v", len(ids), err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (seller_id, key, name, description, price_cents, unit)
VALUES (NULLIF($1, '')::uuid, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (key) DO UPDATE SET
    seller_id = EXCLUDED.seller_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    unit = EXCLUDED.unit
RETURNING id::text, created_at
`
	res := p
	if err := r.pool.QueryRow(ctx, q, p.SellerID, p.Key, p.Name, p.Description, p.PriceCents, p.Unit).Scan(&res.ID, &res.CreatedAt); err != nil {
		r.logger.Printf("product repo: upsert key=%s error=%v", p.Key, err)
		return nil, fmt.Errorf("upsert product %s: %w", p.Key, err)
	}
	r.logger.Printf("product repo: upserted key=%s id=%s", res.Key, res.ID)
	return &res, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Key, &p.Name, &p.Description, &p.PriceCents, &p.Unit, &p.CreatedAt)
	return p, err
}
