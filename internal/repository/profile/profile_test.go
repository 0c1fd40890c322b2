package profile

import (
	"context"
	"errors"
	"testing"

	"farmtable/internal/domain"
	"farmtable/internal/repository/pgtest"
)

func TestPostgres_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	repo := NewPostgres(pool, nil)

	created, err := repo.Upsert(ctx, domain.Profile{Role: domain.RoleSeller, FullName: "Rahim", Email: "Rahim@Farm.example", Address: "Village 1", Phone: "017"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.Email != "rahim@farm.example" {
		t.Fatalf("expected lower-cased email, got %q", created.Email)
	}

	updated, err := repo.Upsert(ctx, domain.Profile{Role: domain.RoleSeller, FullName: "Rahim Uddin", Email: "rahim@farm.example", Address: "Village 2", Phone: "018"})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if updated.ID != created.ID || updated.Address != "Village 2" {
		t.Fatalf("unexpected update %+v", updated)
	}

	byEmail, err := repo.GetByEmail(ctx, "RAHIM@farm.example")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("GetByEmail: %v %+v", err, byEmail)
	}
	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil || byID.Role != domain.RoleSeller {
		t.Fatalf("GetByID: %v %+v", err, byID)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
