package seed

import (
	"context"
	"fmt"

	"farmtable/internal/domain"
)

type ProfileWriter interface {
	Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
}

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type produceSeed struct {
	SellerEmail string
	Key         string
	Name        string
	Description string
	PriceCents  int64
	Unit        string
}

var demoProfiles = []domain.Profile{
	{Role: domain.RoleSeller, FullName: "Rahim Uddin", Email: "rahim@farm.test", Address: "Savar, Dhaka", Phone: "01700000001"},
	{Role: domain.RoleSeller, FullName: "Karim Hossain", Email: "karim@farm.test", Address: "Bogura", Phone: "01700000002"},
	{Role: domain.RoleBuyer, FullName: "Nadia Islam", Email: "nadia@buyer.test", Address: "House 12, Road 5, Dhanmondi, Dhaka", Phone: "01800000001"},
	{Role: domain.RoleAdmin, FullName: "Market Admin", Email: "admin@farm.test"},
}

var demoProduce = []produceSeed{
	{SellerEmail: "rahim@farm.test", Key: "rahim-tomato", Name: "Red Tomatoes", Description: "Vine ripened", PriceCents: 5000, Unit: "kg"},
	{SellerEmail: "rahim@farm.test", Key: "rahim-spinach", Name: "Spinach", Description: "Picked this morning", PriceCents: 3000, Unit: "bunch"},
	{SellerEmail: "karim@farm.test", Key: "karim-potato", Name: "Potatoes", PriceCents: 4000, Unit: "kg"},
	{SellerEmail: "karim@farm.test", Key: "karim-eggs", Name: "Brown Eggs", PriceCents: 15000, Unit: "dozen"},
}

// Apply inserts demo farmers, buyers and produce for manual testing. It is
// idempotent: profiles are keyed by email and products by key.
func Apply(ctx context.Context, profiles ProfileWriter, products ProductWriter) ([]domain.Profile, error) {
	byEmail := make(map[string]string, len(demoProfiles))
	out := make([]domain.Profile, 0, len(demoProfiles))
	for _, p := range demoProfiles {
		saved, err := profiles.Upsert(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("upsert profile %s: %w", p.Email, err)
		}
		byEmail[saved.Email] = saved.ID
		out = append(out, *saved)
	}

	for _, p := range demoProduce {
		sellerID, ok := byEmail[p.SellerEmail]
		if !ok {
			return nil, fmt.Errorf("produce %s: unknown seller %s", p.Key, p.SellerEmail)
		}
		_, err := products.Upsert(ctx, domain.Product{
			SellerID:    sellerID,
			Key:         p.Key,
			Name:        p.Name,
			Description: p.Description,
			PriceCents:  p.PriceCents,
			Unit:        p.Unit,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}

	return out, nil
}
