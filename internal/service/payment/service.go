// Package payment starts the hosted-checkout handshake for an order.
package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"farmtable/internal/domain"
	"farmtable/internal/gateway"
)

type orderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	RecordAttempt(ctx context.Context, a domain.PaymentAttempt) error
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type processor interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (string, error)
}

// Initiation is what the buyer's browser needs to continue to the processor.
type Initiation struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	RedirectURL   string `json:"redirectUrl"`
}

type Service struct {
	orders     orderStore
	profiles   profileStore
	processor  processor
	tranPrefix string
	now        func() time.Time
	logger     *log.Logger
}

func New(orders orderStore, profiles profileStore, processor processor, tranPrefix string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:     orders,
		profiles:   profiles,
		processor:  processor,
		tranPrefix: tranPrefix,
		now:        time.Now,
		logger:     logger,
	}
}

// Initiate records a new payment attempt and asks the processor for a
// redirect URL. The order itself is never modified here.
func (s *Service) Initiate(ctx context.Context, id domain.Identity, orderID string) (*Initiation, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if id.UserID == "" || id.UserID != o.BuyerID {
		return nil, domain.ErrUnauthorizedOrderAccess
	}
	if o.PaymentStatus != domain.PaymentPending || o.Status == domain.StatusCancelled {
		return nil, domain.ErrPaymentNotPending
	}

	tranID, err := gateway.NewTransactionID(s.tranPrefix, o.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.RecordAttempt(ctx, domain.PaymentAttempt{
		TranID:      tranID,
		OrderID:     o.ID,
		AmountCents: o.TotalCents,
		Currency:    o.Currency,
	}); err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}

	customer := domain.DeliveryInfo{Address: o.DeliveryAddress, Phone: o.Phone}
	if p, err := s.profiles.GetByID(ctx, o.BuyerID); err == nil {
		customer.Name = p.FullName
		customer.Email = p.Email
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("payment: profile lookup buyer_id=%s error=%v", o.BuyerID, err)
	}

	redirect, err := s.processor.Initiate(ctx, gateway.InitiateRequest{
		TranID:      tranID,
		OrderID:     o.ID,
		AmountCents: o.TotalCents,
		Currency:    o.Currency,
		Customer:    customer,
		ProductName: productSummary(o.Items),
	})
	if err != nil {
		s.logger.Printf("payment: initiate order_id=%s tran_id=%s error=%v", o.ID, tranID, err)
		return nil, err
	}
	s.logger.Printf("payment: initiated order_id=%s tran_id=%s", o.ID, tranID)
	return &Initiation{OrderID: o.ID, TransactionID: tranID, RedirectURL: redirect}, nil
}

func productSummary(items []domain.OrderItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductName != "" {
			names = append(names, it.ProductName)
		}
	}
	summary := strings.Join(names, ", ")
	if len(summary) > 255 {
		summary = summary[:252] + "..."
	}
	return summary
}
