// Package events carries order lifecycle events from the order/payment core
// to asynchronous consumers such as the chat bridge.
package events

import (
	"context"
	"time"

	"farmtable/internal/domain"
	"github.com/google/uuid"
)

type Kind string

const (
	OrderCreated   Kind = "order.created"
	PaymentUpdated Kind = "order.payment_updated"
	StatusUpdated  Kind = "order.status_updated"
)

// Event is the wire form published to the order events topic.
type Event struct {
	ID            string               `json:"id"`
	Kind          Kind                 `json:"kind"`
	OrderID       string               `json:"orderId"`
	BuyerID       string               `json:"buyerId"`
	SellerID      string               `json:"sellerId"`
	TotalCents    int64                `json:"totalCents"`
	Currency      string               `json:"currency"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// New snapshots an order into an event with a fresh id.
func New(kind Kind, o domain.Order) Event {
	return Event{
		ID:            uuid.NewString(),
		Kind:          kind,
		OrderID:       o.ID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher hands an event to the transport. Callers treat failures as
// non-fatal: the state change that produced the event has already committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler consumes one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Discard drops every event.
var Discard Publisher = discard{}
