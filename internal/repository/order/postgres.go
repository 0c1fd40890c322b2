package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"farmtable/internal/domain"
	"farmtable/internal/repository/pgid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const orderColumns = `id::text, buyer_id::text, seller_id::text, status, total_cents, currency, order_date,
       delivery_address, phone, payment_status, transaction_id, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `
INSERT INTO orders (buyer_id, seller_id, total_cents, currency, delivery_address, phone)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns
	o, err := scanOrder(tx.QueryRow(ctx, q, in.BuyerID, in.SellerID, in.TotalCents(), in.Currency, in.DeliveryAddress, in.Phone))
	if err != nil {
		r.logger.Printf("order repo: create buyer_id=%s seller_id=%s error=%v", in.BuyerID, in.SellerID, err)
		return nil, err
	}

	const itemQ = `
INSERT INTO order_items (order_id, product_id, product_name, unit, quantity, unit_price_cents, cart_item_id)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid)
RETURNING id::text
`
	for _, it := range in.Items {
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, itemQ, o.ID, it.ProductID, it.ProductName, it.Unit, it.Quantity, it.UnitPriceCents, it.CartItemID).Scan(&it.ID); err != nil {
			if isUniqueViolation(err) {
				r.logger.Printf("order repo: cart_item_id=%s already ordered", it.CartItemID)
				return nil, domain.ErrAlreadyExists
			}
			return nil, err
		}
		o.Items = append(o.Items, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created order_id=%s seller_id=%s items=%d total_cents=%d", o.ID, o.SellerID, len(o.Items), o.TotalCents)
	return o, nil
}

func (r *postgresRepo) OrderedCartItems(ctx context.Context, cartItemIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(cartItemIDs))
	uids := pgid.ParseAll(cartItemIDs)
	if len(uids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT cart_item_id::text FROM order_items WHERE cart_item_id = ANY($1::uuid[])`, uids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	uid, ok := pgid.Parse(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	list := []domain.Order{*o}
	if err := r.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *postgresRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	uid, ok := pgid.Parse(buyerID)
	if !ok {
		return nil, nil
	}
	return r.list(ctx, `WHERE buyer_id = $1`, uid)
}

func (r *postgresRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	uid, ok := pgid.Parse(sellerID)
	if !ok {
		return nil, nil
	}
	return r.list(ctx, `WHERE seller_id = $1`, uid)
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, ``)
}

func (r *postgresRepo) list(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY order_date DESC`, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}
	uids := pgid.ParseAll(ids)
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id::text, product_name, unit, quantity, unit_price_cents, COALESCE(cart_item_id::text, '')
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY id
`, uids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Unit, &it.Quantity, &it.UnitPriceCents, &it.CartItemID); err != nil {
			return err
		}
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func (r *postgresRepo) ApplyPayment(ctx context.Context, orderID string, status domain.PaymentStatus, transactionID *string) (domain.PaymentTransition, error) {
	tr := domain.PaymentTransition{OrderID: orderID, Previous: domain.PaymentPending}
	uid, ok := pgid.Parse(orderID)
	if !ok {
		return tr, domain.ErrNotFound
	}
	const q = `
UPDATE orders
SET payment_status = $2,
    transaction_id = COALESCE(transaction_id, $3),
    updated_at = now()
WHERE id = $1 AND payment_status = 'pending'
RETURNING transaction_id
`
	err := r.pool.QueryRow(ctx, q, uid, string(status), transactionID).Scan(&tr.TransactionID)
	if err == nil {
		tr.Current = status
		tr.Changed = true
		r.logger.Printf("order repo: payment order_id=%s pending -> %s", orderID, status)
		return tr, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err) {
			return tr, fmt.Errorf("transaction id already bound to another order: %w", domain.ErrAlreadyExists)
		}
		r.logger.Printf("order repo: payment order_id=%s error=%v", orderID, err)
		return tr, err
	}

	// Not pending any more, or the order does not exist.
	var current string
	err = r.pool.QueryRow(ctx, `SELECT payment_status, transaction_id FROM orders WHERE id = $1`, uid).Scan(&current, &tr.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tr, domain.ErrNotFound
		}
		return tr, err
	}
	tr.Previous = domain.PaymentStatus(current)
	next, changed, mergeErr := domain.MergePaymentStatus(tr.Previous, status)
	tr.Current = next
	tr.Changed = changed
	if mergeErr != nil {
		r.logger.Printf("order repo: payment order_id=%s stored=%s incoming=%s conflict", orderID, current, status)
	}
	return tr, mergeErr
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (*domain.Order, error) {
	uid, ok := pgid.Parse(orderID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	q := `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, uid, string(from), string(to)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}
	r.logger.Printf("order repo: status order_id=%s %s -> %s", orderID, from, to)
	return o, nil
}

func (r *postgresRepo) RecordAttempt(ctx context.Context, a domain.PaymentAttempt) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO payment_attempts (tran_id, order_id, amount_cents, currency)
VALUES ($1, $2, $3, $4)
`, a.TranID, a.OrderID, a.AmountCents, a.Currency)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresRepo) ResolveTransaction(ctx context.Context, tranID string) (string, error) {
	var orderID string
	err := r.pool.QueryRow(ctx, `SELECT order_id::text FROM payment_attempts WHERE tran_id = $1`, tranID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return orderID, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status, payment string
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &status, &o.TotalCents, &o.Currency, &o.OrderDate,
		&o.DeliveryAddress, &o.Phone, &payment, &o.TransactionID, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(payment)
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
