// Package reconcile applies payment outcomes reported by the processor.
//
// Two channels report the same payment: the buyer's browser redirect and the
// server-to-server IPN. They can arrive in any order and more than once. Both
// feed the same guarded merge, so the first terminal state wins and later
// signals are absorbed.
package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"farmtable/internal/domain"
	"farmtable/internal/events"
)

type Route string

const (
	RouteSuccess Route = "success"
	RouteFail    Route = "fail"
	RouteCancel  Route = "cancel"
	RouteIPN     Route = "ipn"
)

// Callback is the processor payload of a redirect or IPN.
type Callback struct {
	Route         Route
	RoutedOrderID string
	Status        string
	TranID        string
	Error         string
}

// Outcome is reported to the buyer in the redirect query string.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
	OutcomeCancel  Outcome = "cancel"
	OutcomeError   Outcome = "error"
)

// RedirectResult tells the HTTP layer where to send the buyer.
type RedirectResult struct {
	OrderID string
	Outcome Outcome
}

type ledger interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ApplyPayment(ctx context.Context, orderID string, status domain.PaymentStatus, transactionID *string) (domain.PaymentTransition, error)
	ResolveTransaction(ctx context.Context, tranID string) (string, error)
}

type Service struct {
	orders    ledger
	publisher events.Publisher
	logger    *log.Logger
}

func New(orders ledger, publisher events.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{orders: orders, publisher: publisher, logger: logger}
}

var errUnclassifiable = errors.New("redirect carries neither status nor error")

// ClassifyRedirect maps a browser redirect to the payment state it reports.
func ClassifyRedirect(cb Callback) (domain.PaymentStatus, error) {
	status := strings.ToUpper(strings.TrimSpace(cb.Status))
	if cb.Route == RouteCancel || status == "CANCELLED" {
		return domain.PaymentCancelled, nil
	}
	switch status {
	case "VALID", "VALIDATED":
		return domain.PaymentPaid, nil
	case "":
		if strings.TrimSpace(cb.Error) != "" || cb.Route == RouteFail {
			return domain.PaymentFailed, nil
		}
		return "", errUnclassifiable
	}
	return domain.PaymentFailed, nil
}

// HandleRedirect never fails: every problem degrades to OutcomeError.
func (s *Service) HandleRedirect(ctx context.Context, cb Callback) RedirectResult {
	res := RedirectResult{OrderID: strings.TrimSpace(cb.RoutedOrderID), Outcome: OutcomeError}

	status, err := ClassifyRedirect(cb)
	if err != nil {
		s.logger.Printf("reconcile: redirect route=%s tran_id=%s: %v", cb.Route, cb.TranID, err)
		return res
	}

	orderID, err := s.resolveOrder(ctx, cb)
	if err != nil {
		s.logger.Printf("reconcile: redirect route=%s tran_id=%s resolve: %v", cb.Route, cb.TranID, err)
		if errors.Is(err, domain.ErrMissingOrderIdentifier) {
			res.OrderID = ""
		}
		return res
	}
	res.OrderID = orderID

	tr, err := s.apply(ctx, orderID, status, cb.TranID, "redirect")
	if err != nil && !errors.Is(err, domain.ErrReconciliationConflict) {
		return res
	}
	// The buyer sees what is stored, even when this signal lost the race.
	res.Outcome = outcomeFor(tr.Current)
	return res
}

// HandleIPN acknowledges everything except storage failures, which the
// processor answers by redelivering.
func (s *Service) HandleIPN(ctx context.Context, cb Callback) error {
	status := strings.ToUpper(strings.TrimSpace(cb.Status))
	if status != "VALID" {
		s.logger.Printf("reconcile: ipn tran_id=%s status=%q acknowledged without change", cb.TranID, cb.Status)
		return nil
	}

	orderID, err := s.resolveOrder(ctx, cb)
	if err != nil {
		if errors.Is(err, domain.ErrMissingOrderIdentifier) {
			s.logger.Printf("reconcile: ipn tran_id=%s: %v", cb.TranID, err)
			return nil
		}
		return err
	}

	_, err = s.apply(ctx, orderID, domain.PaymentPaid, cb.TranID, "ipn")
	if err != nil && !errors.Is(err, domain.ErrReconciliationConflict) && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, orderID string, status domain.PaymentStatus, tranID, channel string) (domain.PaymentTransition, error) {
	var tx *string
	if status == domain.PaymentPaid {
		tx = &tranID
	}
	tr, err := s.orders.ApplyPayment(ctx, orderID, status, tx)
	switch {
	case errors.Is(err, domain.ErrReconciliationConflict):
		s.logger.Printf("reconcile: %s order_id=%s stored=%s incoming=%s ignored", channel, orderID, tr.Current, status)
		return tr, err
	case err != nil:
		s.logger.Printf("reconcile: %s order_id=%s apply %s error=%v", channel, orderID, status, err)
		return tr, err
	}

	if !tr.Changed {
		s.logger.Printf("reconcile: %s order_id=%s already %s", channel, orderID, tr.Current)
		return tr, nil
	}
	s.logger.Printf("reconcile: %s order_id=%s payment %s -> %s", channel, orderID, tr.Previous, tr.Current)
	s.publish(ctx, orderID)
	return tr, nil
}

func (s *Service) publish(ctx context.Context, orderID string) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Printf("reconcile: load order_id=%s for event error=%v", orderID, err)
		return
	}
	if err := s.publisher.Publish(ctx, events.New(events.PaymentUpdated, *o)); err != nil {
		s.logger.Printf("reconcile: publish order_id=%s error=%v", orderID, err)
	}
}

// resolveOrder ties a callback to an order through the recorded attempt for
// its tran_id, never by parsing it. Callbacks are unauthenticated, so a routed
// id alone cannot settle an order; when present it must agree with the attempt.
func (s *Service) resolveOrder(ctx context.Context, cb Callback) (string, error) {
	routed := strings.TrimSpace(cb.RoutedOrderID)
	tranID := strings.TrimSpace(cb.TranID)
	if tranID == "" {
		return "", domain.ErrMissingOrderIdentifier
	}

	resolved, err := s.orders.ResolveTransaction(ctx, tranID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", domain.ErrMissingOrderIdentifier
	case err != nil:
		return "", err
	case routed != "" && routed != resolved:
		return "", domain.ErrMissingOrderIdentifier
	}
	return resolved, nil
}

func outcomeFor(s domain.PaymentStatus) Outcome {
	switch s {
	case domain.PaymentPaid:
		return OutcomeSuccess
	case domain.PaymentFailed:
		return OutcomeFail
	case domain.PaymentCancelled:
		return OutcomeCancel
	}
	return OutcomeError
}
