package domain

import "time"

// OrderStatus is the seller-driven fulfillment status of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Order is a single-seller order produced by checkout.
type Order struct {
	ID              string        `json:"id"`
	BuyerID         string        `json:"buyerId"`
	SellerID        string        `json:"sellerId"`
	Status          OrderStatus   `json:"status"`
	TotalCents      int64         `json:"totalCents"`
	Currency        string        `json:"currency"`
	OrderDate       time.Time     `json:"orderDate"`
	DeliveryAddress string        `json:"deliveryAddress"`
	Phone           string        `json:"phone"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	TransactionID   *string       `json:"transactionId,omitempty"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Items           []OrderItem   `json:"items,omitempty"`
}

// OrderItem freezes the catalog price at order creation.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	Unit           string `json:"unit"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	CartItemID     string `json:"-"`
}

// LineTotalCents is unit price times quantity.
func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// SumItems totals the frozen line prices.
func SumItems(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotalCents()
	}
	return total
}

// NewOrder is the write model for one seller's order.
type NewOrder struct {
	BuyerID         string
	SellerID        string
	Currency        string
	DeliveryAddress string
	Phone           string
	Items           []OrderItem
}

// TotalCents is derived from the items, never supplied by callers.
func (n NewOrder) TotalCents() int64 {
	return SumItems(n.Items)
}
