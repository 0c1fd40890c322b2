// Package notify turns order events into chat messages between the buyer and
// the seller of an order.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"farmtable/internal/domain"
	"farmtable/internal/events"
	"farmtable/internal/gateway"
)

// ChatPoster appends one message to an order's conversation.
type ChatPoster interface {
	Post(ctx context.Context, m domain.Message) (*domain.Message, error)
}

// Deduper claims an event id so redelivered events are posted only once.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Bridge struct {
	chat   ChatPoster
	dedupe Deduper
	logger *log.Logger
}

func NewBridge(chat ChatPoster, dedupe Deduper, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bridge{chat: chat, dedupe: dedupe, logger: logger}
}

// Handle posts the counterparty messages for ev.
func (b *Bridge) Handle(ctx context.Context, ev events.Event) error {
	msgs := Messages(ev)
	if len(msgs) == 0 {
		return nil
	}

	if b.dedupe != nil {
		ok, err := b.dedupe.Claim(ctx, ev.ID)
		if err != nil {
			// Unclaimed: post anyway.
			b.logger.Printf("notify: dedupe claim event_id=%s error=%v", ev.ID, err)
		} else if !ok {
			b.logger.Printf("notify: skip duplicate event_id=%s kind=%s", ev.ID, ev.Kind)
			return nil
		}
	}

	for _, m := range msgs {
		if _, err := b.chat.Post(ctx, m); err != nil {
			if b.dedupe != nil {
				if rerr := b.dedupe.Release(ctx, ev.ID); rerr != nil {
					b.logger.Printf("notify: release event_id=%s error=%v", ev.ID, rerr)
				}
			}
			return fmt.Errorf("post message for order %s: %w", ev.OrderID, err)
		}
	}
	b.logger.Printf("notify: posted event_id=%s kind=%s order_id=%s messages=%d", ev.ID, ev.Kind, ev.OrderID, len(msgs))
	return nil
}

// Messages builds the chat lines an event produces. Creation and payment go
// from buyer to seller; fulfillment updates go from seller to buyer.
func Messages(ev events.Event) []domain.Message {
	if ev.OrderID == "" || ev.BuyerID == "" || ev.SellerID == "" {
		return nil
	}
	ref := shortRef(ev.OrderID)
	toSeller := func(body string) domain.Message {
		return domain.Message{OrderID: ev.OrderID, SenderID: ev.BuyerID, ReceiverID: ev.SellerID, Body: body}
	}
	toBuyer := func(body string) domain.Message {
		return domain.Message{OrderID: ev.OrderID, SenderID: ev.SellerID, ReceiverID: ev.BuyerID, Body: body}
	}

	switch ev.Kind {
	case events.OrderCreated:
		return []domain.Message{toSeller(fmt.Sprintf("New order #%s placed for %s %s. Awaiting payment.",
			ref, gateway.FormatAmount(ev.TotalCents), ev.Currency))}
	case events.PaymentUpdated:
		switch ev.PaymentStatus {
		case domain.PaymentPaid:
			return []domain.Message{toSeller(fmt.Sprintf("Payment received for order #%s. Please confirm the order.", ref))}
		case domain.PaymentFailed:
			return []domain.Message{toSeller(fmt.Sprintf("Payment for order #%s failed.", ref))}
		case domain.PaymentCancelled:
			return []domain.Message{toSeller(fmt.Sprintf("Payment for order #%s was cancelled by the buyer.", ref))}
		}
	case events.StatusUpdated:
		switch ev.Status {
		case domain.StatusConfirmed:
			return []domain.Message{toBuyer(fmt.Sprintf("Your order #%s has been confirmed.", ref))}
		case domain.StatusProcessing:
			return []domain.Message{toBuyer(fmt.Sprintf("Your order #%s is being prepared.", ref))}
		case domain.StatusShipped:
			return []domain.Message{toBuyer(fmt.Sprintf("Your order #%s is on its way.", ref))}
		case domain.StatusDelivered:
			return []domain.Message{toBuyer(fmt.Sprintf("Your order #%s has been delivered. Enjoy!", ref))}
		case domain.StatusCancelled:
			return []domain.Message{toBuyer(fmt.Sprintf("Your order #%s has been cancelled by the seller.", ref))}
		}
	}
	return nil
}

func shortRef(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}
