package domain

// PaymentStatus is the payment outcome of an order. The values form a lattice
// with pending at the bottom and the three terminal states above it.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed || s == PaymentCancelled
}

// MergePaymentStatus joins an incoming signal into the stored status.
// The first terminal state wins: re-applying it is a no-op, a different
// terminal state yields ErrReconciliationConflict and leaves current intact.
// The result does not depend on the order in which signals are merged.
func MergePaymentStatus(current, incoming PaymentStatus) (PaymentStatus, bool, error) {
	if !incoming.Terminal() {
		return current, false, nil
	}
	if current == "" || current == PaymentPending {
		return incoming, true, nil
	}
	if current == incoming {
		return current, false, nil
	}
	return current, false, ErrReconciliationConflict
}

// PaymentTransition reports what a guarded payment update did.
type PaymentTransition struct {
	OrderID       string
	Previous      PaymentStatus
	Current       PaymentStatus
	Changed       bool
	TransactionID *string
}

// PaymentAttempt correlates a processor transaction id with its order.
type PaymentAttempt struct {
	TranID      string
	OrderID     string
	AmountCents int64
	Currency    string
}
