package importer

import (
	"context"
	"strings"
	"testing"

	"farmtable/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

type stubSellers struct {
	profiles map[string]domain.Profile
	lookups  int
}

func (s *stubSellers) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	s.lookups++
	p, ok := s.profiles[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func newSellers() *stubSellers {
	return &stubSellers{profiles: map[string]domain.Profile{
		"rahim@farm.test": {ID: "seller-1", Role: domain.RoleSeller, Email: "rahim@farm.test"},
		"buyer@farm.test": {ID: "buyer-1", Role: domain.RoleBuyer, Email: "buyer@farm.test"},
	}}
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `seller_email,key,name,description,price_cents,unit
rahim@farm.test,tomato-red,Red Tomatoes,Vine ripened,5000,kg
,,,,,
Rahim@Farm.test,eggs-brown,Brown Eggs,,1200,dozen
rahim@farm.test,spinach,Spinach,,900,`

	repo := &stubProductRepo{}
	sellers := newSellers()
	imp := NewCSVImporter(strings.NewReader(csvData), repo, sellers)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}
	if len(repo.items) != 3 {
		t.Fatalf("expected 3 products saved, got %d", len(repo.items))
	}
	first := repo.items[0]
	if first.Key != "tomato-red" || first.SellerID != "seller-1" || first.PriceCents != 5000 || first.Unit != "kg" || first.Description != "Vine ripened" {
		t.Fatalf("unexpected product data: %+v", first)
	}
	if repo.items[1].Unit != "dozen" {
		t.Fatalf("expected unit to be kept, got %q", repo.items[1].Unit)
	}
	if repo.items[2].Unit != defaultUnit {
		t.Fatalf("expected default unit, got %q", repo.items[2].Unit)
	}
	if sellers.lookups != 1 {
		t.Fatalf("expected seller lookup to be cached, got %d lookups", sellers.lookups)
	}
}

func TestCSVImporter_DecimalPrice(t *testing.T) {
	csvData := `seller_email,key,name,price
rahim@farm.test,honey,Wild Honey,12.5`

	repo := &stubProductRepo{}
	if _, err := NewCSVImporter(strings.NewReader(csvData), repo, newSellers()).Run(context.Background()); err != nil {
		t.Fatalf("import run: %v", err)
	}
	if repo.items[0].PriceCents != 1250 {
		t.Fatalf("expected 1250 cents, got %d", repo.items[0].PriceCents)
	}
}

func TestCSVImporter_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing column":  "key,name\nx,y",
		"unknown seller":  "seller_email,key,name,price_cents\nnobody@farm.test,x,X,100",
		"buyer as seller": "seller_email,key,name,price_cents\nbuyer@farm.test,x,X,100",
		"zero price":      "seller_email,key,name,price_cents\nrahim@farm.test,x,X,0",
		"bad price":       "seller_email,key,name,price_cents\nrahim@farm.test,x,X,ten",
	}
	for name, data := range cases {
		repo := &stubProductRepo{}
		if _, err := NewCSVImporter(strings.NewReader(data), repo, newSellers()).Run(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if len(repo.items) != 0 {
			t.Fatalf("%s: expected nothing saved, got %d", name, len(repo.items))
		}
	}
}
