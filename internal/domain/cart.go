package domain

import "time"

type Cart struct {
	ID        string     `json:"id"`
	BuyerID   string     `json:"buyerId"`
	CreatedAt time.Time  `json:"createdAt"`
	Items     []CartItem `json:"items"`
}

type CartItem struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cartId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}
