package cart

import (
	"context"
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

func (r *postgresRepo) GetOrCreate(ctx context.Context, buyerID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (buyer_id)
VALUES ($1)
ON CONFLICT (buyer_id) DO UPDATE SET buyer_id = EXCLUDED.buyer_id
RETURNING id::text, buyer_id::text, created_at
`
	var c domain.Cart
	if err := r.pool.QueryRow(ctx, q, buyerID).Scan(&c.ID, &c.BuyerID, &c.CreatedAt); err != nil {
		r.logger.Printf("cart repo: get or create buyer_id=%s error=%v", buyerID, err)
		return nil, err
	}

	const itemsQuery = `
SELECT ci.id::text, ci.cart_id::text, ci.product_id::text, ci.quantity, ci.created_at
FROM cart_items ci
WHERE ci.cart_id = $1
  AND NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.cart_item_id = ci.id)
ORDER BY ci.created_at ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID, productID string, quantity int) (*domain.CartItem, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// A row already copied into an order must not be bumped back to life.
	if _, err := tx.Exec(ctx, `
DELETE FROM cart_items ci
WHERE ci.cart_id = $1 AND ci.product_id = $2
  AND EXISTS (SELECT 1 FROM order_items oi WHERE oi.cart_item_id = ci.id)
`, cartID, productID); err != nil {
		return nil, err
	}

	var it domain.CartItem
	err = tx.QueryRow(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING id::text, cart_id::text, product_id::text, quantity, created_at
`, cartID, productID, quantity).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	if err != nil {
		r.logger.Printf("cart repo: add cart_id=%s product_id=%s error=%v", cartID, productID, err)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, cartID, productID)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items ci
SET quantity = $3
WHERE ci.cart_id = $1 AND ci.product_id = $2
  AND NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.cart_item_id = ci.id)
`, cartID, productID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteItems(ctx context.Context, cartID string, itemIDs []string) error {
	uids := pgid.ParseAll(itemIDs)
	if len(uids) == 0 {
		return nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND id = ANY($2::uuid[])`, cartID, uids)
	if err != nil {
		r.logger.Printf("cart repo: delete items cart_id=%s count=%d error=%v", cartID, len(itemIDs), err)
		return err
	}
	r.logger.Printf("cart repo: deleted items cart_id=%s requested=%d deleted=%d", cartID, len(itemIDs), cmd.RowsAffected())
	return nil
}
