package domain

import "time"

// Product is the catalog view needed at checkout time.
type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId,omitempty"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Unit        string    `json:"unit"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeliveryInfo is the buyer contact data captured on each order at checkout.
type DeliveryInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}
