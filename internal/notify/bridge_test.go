package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"farmtable/internal/domain"
	"farmtable/internal/events"
)

type memoryChat struct {
	mu    sync.Mutex
	posts []domain.Message
	err   error
}

func (m *memoryChat) Post(_ context.Context, msg domain.Message) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.posts = append(m.posts, msg)
	return &msg, nil
}

type memoryDeduper struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{claimed: map[string]bool{}}
}

func (d *memoryDeduper) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.claimed[id] {
		return false, nil
	}
	d.claimed[id] = true
	return true, nil
}

func (d *memoryDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, id)
	d.released = append(d.released, id)
	return nil
}

func paidEvent() events.Event {
	return events.New(events.PaymentUpdated, domain.Order{
		ID:            "3f2a9c10-aaaa-bbbb-cccc-000000000001",
		BuyerID:       "buyer",
		SellerID:      "seller",
		TotalCents:    2500,
		Currency:      "BDT",
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPaid,
	})
}

func TestMessagesDirection(t *testing.T) {
	created := events.New(events.OrderCreated, domain.Order{ID: "o1", BuyerID: "b", SellerID: "s", TotalCents: 15000, Currency: "BDT"})
	msgs := Messages(created)
	if len(msgs) != 1 || msgs[0].SenderID != "b" || msgs[0].ReceiverID != "s" {
		t.Fatalf("expected buyer->seller message, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Body, "150.00 BDT") {
		t.Fatalf("expected formatted amount in %q", msgs[0].Body)
	}

	shipped := events.New(events.StatusUpdated, domain.Order{ID: "o1", BuyerID: "b", SellerID: "s", Status: domain.StatusShipped})
	msgs = Messages(shipped)
	if len(msgs) != 1 || msgs[0].SenderID != "s" || msgs[0].ReceiverID != "b" {
		t.Fatalf("expected seller->buyer message, got %+v", msgs)
	}

	if got := Messages(events.Event{Kind: events.OrderCreated, OrderID: "o1"}); got != nil {
		t.Fatalf("expected no messages without parties, got %+v", got)
	}
	pending := events.New(events.PaymentUpdated, domain.Order{ID: "o1", BuyerID: "b", SellerID: "s", PaymentStatus: domain.PaymentPending})
	if got := Messages(pending); got != nil {
		t.Fatalf("expected no message for pending payment, got %+v", got)
	}
}

func TestBridgeDropsRedeliveredEvent(t *testing.T) {
	chat := &memoryChat{}
	bridge := NewBridge(chat, newMemoryDeduper(), nil)
	ev := paidEvent()

	for i := 0; i < 3; i++ {
		if err := bridge.Handle(context.Background(), ev); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if len(chat.posts) != 1 {
		t.Fatalf("expected one message, got %d", len(chat.posts))
	}
}

func TestBridgeReleasesClaimOnPostFailure(t *testing.T) {
	chat := &memoryChat{err: errors.New("db down")}
	dedupe := newMemoryDeduper()
	bridge := NewBridge(chat, dedupe, nil)
	ev := paidEvent()

	if err := bridge.Handle(context.Background(), ev); err == nil {
		t.Fatalf("expected post error")
	}
	if len(dedupe.released) != 1 || dedupe.released[0] != ev.ID {
		t.Fatalf("expected claim released, got %v", dedupe.released)
	}

	chat.err = nil
	if err := bridge.Handle(context.Background(), ev); err != nil {
		t.Fatalf("retry Handle: %v", err)
	}
	if len(chat.posts) != 1 {
		t.Fatalf("expected message after retry, got %d", len(chat.posts))
	}
}

func TestBridgePostsWhenDeduperUnavailable(t *testing.T) {
	chat := &memoryChat{}
	dedupe := newMemoryDeduper()
	dedupe.err = errors.New("redis down")
	bridge := NewBridge(chat, dedupe, nil)

	if err := bridge.Handle(context.Background(), paidEvent()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(chat.posts) != 1 {
		t.Fatalf("expected message posted, got %d", len(chat.posts))
	}
}

func TestBridgeWithoutDeduper(t *testing.T) {
	chat := &memoryChat{}
	bridge := NewBridge(chat, nil, nil)
	ev := paidEvent()
	_ = bridge.Handle(context.Background(), ev)
	_ = bridge.Handle(context.Background(), ev)
	if len(chat.posts) != 2 {
		t.Fatalf("expected every delivery posted without a deduper, got %d", len(chat.posts))
	}
}
