package domain

import (
	"errors"
	"strings"
	"time"
)

// Package enumerates the purchasable service tiers.
type Package string

const (
	PackageBasic    Package = "Basic"
	PackageAdvanced Package = "Advanced"
	PackagePremium  Package = "Premium"
	PackageFree     Package = "Free"
)

// PaymentStatus represents the lifecycle state of an order's payment.
type PaymentStatus string

const (
	// StatusPending is kept for wire compatibility with older records;
	// new orders start in StatusAwaitingPayment.
	StatusPending         PaymentStatus = "Pending"
	StatusAwaitingPayment PaymentStatus = "AwaitingPayment"
	StatusCompleted       PaymentStatus = "Completed"
	StatusFailed          PaymentStatus = "Failed"
)

var (
	ErrEmptyEmail         = errors.New("order email is required")
	ErrUnknownPackage     = errors.New("unknown package tier")
	ErrMediaLimitExceeded = errors.New("media count exceeds package limit")
	ErrInvalidTransition  = errors.New("invalid payment status transition")
)

// fileLimits maps every tier to its upload ceiling. The table is closed;
// ParsePackage rejects anything outside it.
var fileLimits = map[Package]int{
	PackageBasic:    5,
	PackageAdvanced: 10,
	PackagePremium:  15,
	PackageFree:     1,
}

// ParsePackage validates a raw tier string against the closed enumeration.
func ParsePackage(raw string) (Package, error) {
	pkg := Package(strings.TrimSpace(raw))
	if _, ok := fileLimits[pkg]; !ok {
		return "", ErrUnknownPackage
	}
	return pkg, nil
}

// FileLimit returns the per-tier upload ceiling.
func (p Package) FileLimit() int {
	return fileLimits[p]
}

// Paid reports whether the tier requires a payment session.
func (p Package) Paid() bool {
	return p != PackageFree
}

// Terminal reports whether no further transition is allowed out of the status.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// transitions lists the forward-only edges of the payment state machine.
var transitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:         {StatusAwaitingPayment, StatusCompleted, StatusFailed},
	StatusAwaitingPayment: {StatusCompleted, StatusFailed},
}

func (s PaymentStatus) canTransitionTo(next PaymentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is the aggregate coordinating intake, media upload, and payment.
type Order struct {
	ID            string
	Email         string
	Package       Package
	MediaRefs     []string
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// NewOrder validates the invariants and builds a new Order in its initial state.
// Free-tier orders complete immediately without gateway involvement.
func NewOrder(email string, pkg Package) (*Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}
	if _, ok := fileLimits[pkg]; !ok {
		return nil, ErrUnknownPackage
	}
	status := StatusAwaitingPayment
	if !pkg.Paid() {
		status = StatusCompleted
	}
	return &Order{
		Email:         strings.TrimSpace(email),
		Package:       pkg,
		PaymentStatus: status,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// AttachMedia replaces the stored media references, enforcing the tier ceiling.
func (o *Order) AttachMedia(refs []string) error {
	if len(refs) > o.Package.FileLimit() {
		return ErrMediaLimitExceeded
	}
	o.MediaRefs = append([]string{}, refs...)
	return nil
}

// Transition moves the payment status forward; terminal states are immutable.
// Transitioning to the current state is a no-op so that replayed gateway
// events stay idempotent.
func (o *Order) Transition(next PaymentStatus) error {
	if o.PaymentStatus == next {
		return nil
	}
	if !o.PaymentStatus.canTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.PaymentStatus = next
	return nil
}

// Complete marks the order as paid.
func (o *Order) Complete() error {
	return o.Transition(StatusCompleted)
}

// Fail marks the order as abandoned or cancelled.
func (o *Order) Fail() error {
	return o.Transition(StatusFailed)
}

// AwaitingPayment reports whether the order still holds an open reservation.
func (o *Order) AwaitingPayment() bool {
	return o.PaymentStatus == StatusAwaitingPayment
}
