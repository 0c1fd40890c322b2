package checkout

import "farmtable/internal/domain"

// Skipped is a cart line that could not be ordered. It stays in the cart.
type Skipped struct {
	CartItemID string `json:"cartItemId"`
	ProductID  string `json:"productId"`
	Reason     string `json:"reason"`
}

const (
	ReasonProductMissing = "product no longer listed"
	ReasonNoSeller       = "product has no seller"
)

// Split groups cart lines into one order per seller, in first-seen seller
// order, freezing catalog prices and the delivery info captured now.
func Split(buyerID, currency string, items []domain.CartItem, catalog map[string]domain.Product, delivery domain.DeliveryInfo) ([]domain.NewOrder, []Skipped) {
	var (
		orders  []domain.NewOrder
		skipped []Skipped
		bySell  = map[string]int{}
	)
	for _, it := range items {
		p, ok := catalog[it.ProductID]
		if !ok {
			skipped = append(skipped, Skipped{CartItemID: it.ID, ProductID: it.ProductID, Reason: ReasonProductMissing})
			continue
		}
		if p.SellerID == "" {
			skipped = append(skipped, Skipped{CartItemID: it.ID, ProductID: it.ProductID, Reason: ReasonNoSeller})
			continue
		}
		idx, seen := bySell[p.SellerID]
		if !seen {
			idx = len(orders)
			bySell[p.SellerID] = idx
			orders = append(orders, domain.NewOrder{
				BuyerID:         buyerID,
				SellerID:        p.SellerID,
				Currency:        currency,
				DeliveryAddress: delivery.Address,
				Phone:           delivery.Phone,
			})
		}
		orders[idx].Items = append(orders[idx].Items, domain.OrderItem{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Unit:           p.Unit,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			CartItemID:     it.ID,
		})
	}
	return orders, skipped
}
