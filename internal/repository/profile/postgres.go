package profile

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"farmtable/internal/domain"
	"farmtable/internal/repository/pgid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const profileColumns = `id::text, role, full_name, email, address, phone, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	uid, ok := pgid.Parse(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return r.scanProfile(r.pool.QueryRow(ctx, q, uid))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE email = lower($1) LIMIT 1`
	return r.scanProfile(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	q := `
INSERT INTO profiles (role, full_name, email, address, phone)
VALUES ($1, $2, lower($3), $4, $5)
ON CONFLICT (email) DO UPDATE SET
    role = EXCLUDED.role,
    full_name = EXCLUDED.full_name,
    address = EXCLUDED.address,
    phone = EXCLUDED.phone
RETURNING ` + profileColumns
	res, err := r.scanProfile(r.pool.QueryRow(ctx, q, string(p.Role), p.FullName, strings.TrimSpace(p.Email), p.Address, p.Phone))
	if err != nil {
		r.logger.Printf("profile repo: upsert email=%s error=%v", p.Email, err)
		return nil, err
	}
	return res, nil
}

func (r *postgresRepo) scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var role string
	err := row.Scan(&p.ID, &role, &p.FullName, &p.Email, &p.Address, &p.Phone, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Role = domain.Role(role)
	return &p, nil
}
