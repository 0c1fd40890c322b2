package domain

var forwardSteps = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusProcessing},
	StatusConfirmed:  {StatusProcessing, StatusShipped},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Final reports whether the order can no longer move.
func (s OrderStatus) Final() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvance reports whether a seller may move an order from one status to the next.
// Only an immediate successor is allowed: a pending order moves to confirmed
// or straight to processing, and processing may be skipped before shipping.
// Cancellation is allowed from any state before delivery.
func CanAdvance(from, to OrderStatus) bool {
	if to == StatusCancelled {
		return from.Valid() && !from.Final()
	}
	for _, next := range forwardSteps[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiresPayment reports whether entering status needs a settled payment.
func RequiresPayment(to OrderStatus) bool {
	return to == StatusShipped || to == StatusDelivered
}
