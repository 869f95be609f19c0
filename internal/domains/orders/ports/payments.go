package ports

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature is returned when a gateway event fails verification.
	// No state change may follow it.
	ErrInvalidSignature = errors.New("gateway event signature verification failed")
	// ErrMalformedEvent is returned when a verified event's payload cannot be
	// decoded. Distinct from ErrInvalidSignature: trust was established, the
	// content is broken.
	ErrMalformedEvent = errors.New("gateway event payload is malformed")
)

// SessionRequest parameterizes a hosted payment-authorization session.
type SessionRequest struct {
	PriceRef      string
	CustomerEmail string
	// OrderID travels in the session metadata so the asynchronous
	// confirmation event can be mapped back to the reservation.
	OrderID string
}

// CheckoutSession is the gateway's hosted session handle.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// GatewayEvent is the verified, provider-neutral view of an asynchronous
// payment event.
type GatewayEvent struct {
	// Kind is the provider's event type, passed through for logging.
	Kind string
	// Completed is true only for a checkout-completed event.
	Completed bool
	// OrderID is the reservation carried in the event metadata; empty when
	// the event kind is outside this system's concern.
	OrderID string
}

// PaymentGateway creates hosted payment sessions and verifies the gateway's
// asynchronous confirmation events over their raw payload bytes.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error)
	VerifyEvent(payload []byte, signature string) (*GatewayEvent, error)
}
