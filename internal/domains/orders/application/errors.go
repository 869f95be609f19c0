package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
)

// Error taxonomy of the intake saga. The split matters to callers: the first
// three mean nothing happened and the request is safe to retry after
// correction; the last two mean an order row (and possibly media) already
// exists and recovery must go through ResumeUploads or RecreateSession
// instead of re-running CreateOrder.
var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrDuplicatePending signals an open AwaitingPayment reservation
	// already exists for the email.
	ErrDuplicatePending = errors.New("duplicate pending order")
	// ErrStorageUnavailable signals the order row could not be reserved.
	ErrStorageUnavailable = errors.New("order store unavailable")
	// ErrUploadFailed signals the order row exists but the media fan-out did
	// not complete; the row keeps whatever refs were written.
	ErrUploadFailed = errors.New("media upload failed")
	// ErrPaymentSessionFailed signals order and media persist but no payment
	// session was created.
	ErrPaymentSessionFailed = errors.New("payment session creation failed")
	// ErrOrderNotFound signals the addressed order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotResumable signals the addressed order is no longer awaiting
	// payment and cannot accept uploads or a fresh session.
	ErrOrderNotResumable = errors.New("order is not awaiting payment")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyEmail) ||
		errors.Is(err, domain.ErrUnknownPackage) ||
		errors.Is(err, domain.ErrMediaLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
