package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden means the caller's role may not perform the operation at all.
	ErrForbidden = errors.New("forbidden for this role")

	// ErrEmptyCart is returned when a checkout has nothing it can order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutFailed means no seller order could be created for a non-empty cart.
	ErrCheckoutFailed = errors.New("checkout failed")
	// ErrGatewayInit means the payment processor did not hand back a usable redirect URL.
	ErrGatewayInit = errors.New("payment gateway initiation failed")
	// ErrUnauthorizedOrderAccess is returned to anyone who is neither buyer nor seller of the order.
	ErrUnauthorizedOrderAccess = errors.New("not authorized for this order")
	// ErrReconciliationConflict marks an attempt to replace one terminal payment state with another.
	ErrReconciliationConflict = errors.New("payment already settled with a different outcome")
	// ErrMissingOrderIdentifier is returned for payment callbacks that cannot be tied to an order.
	ErrMissingOrderIdentifier = errors.New("payment callback does not identify an order")
	// ErrInvalidTransition rejects fulfillment moves outside the forward sequence.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrPaymentNotPending rejects payment initiation for an order that is already settled.
	ErrPaymentNotPending = errors.New("order payment is not pending")
)
