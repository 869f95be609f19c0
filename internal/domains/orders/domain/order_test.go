package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePackage_AcceptsKnownTiers(t *testing.T) {
	for raw, limit := range map[string]int{
		"Basic":    5,
		"Advanced": 10,
		"Premium":  15,
		"Free":     1,
	} {
		pkg, err := ParsePackage(raw)
		require.NoError(t, err)
		require.Equal(t, limit, pkg.FileLimit())
	}
}

func TestParsePackage_RejectsUnknownTier(t *testing.T) {
	_, err := ParsePackage("Platinum")
	require.ErrorIs(t, err, ErrUnknownPackage)

	_, err = ParsePackage("")
	require.ErrorIs(t, err, ErrUnknownPackage)

	// Tier names are case sensitive on the wire.
	_, err = ParsePackage("basic")
	require.ErrorIs(t, err, ErrUnknownPackage)
}

func TestNewOrder_RequiresEmail(t *testing.T) {
	_, err := NewOrder("   ", PackageBasic)
	require.ErrorIs(t, err, ErrEmptyEmail)
}

func TestNewOrder_PaidTierAwaitsPayment(t *testing.T) {
	order, err := NewOrder("ada@example.com", PackagePremium)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingPayment, order.PaymentStatus)
	require.True(t, order.AwaitingPayment())
	require.True(t, order.Package.Paid())
}

func TestNewOrder_FreeTierCompletesImmediately(t *testing.T) {
	order, err := NewOrder("ada@example.com", PackageFree)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, order.PaymentStatus)
	require.False(t, order.Package.Paid())
}

func TestAttachMedia_EnforcesTierCeiling(t *testing.T) {
	order, err := NewOrder("ada@example.com", PackageBasic)
	require.NoError(t, err)

	refs := []string{"a", "b", "c", "d", "e"}
	require.NoError(t, order.AttachMedia(refs))
	require.Equal(t, refs, order.MediaRefs)

	require.ErrorIs(t, order.AttachMedia(append(refs, "f")), ErrMediaLimitExceeded)
	// The rejected call must not clobber the attached refs.
	require.Equal(t, refs, order.MediaRefs)
}

func TestTransition_ForwardOnly(t *testing.T) {
	order, err := NewOrder("ada@example.com", PackageBasic)
	require.NoError(t, err)

	require.NoError(t, order.Complete())
	require.Equal(t, StatusCompleted, order.PaymentStatus)
	require.True(t, order.PaymentStatus.Terminal())

	// Terminal states accept no further movement.
	require.ErrorIs(t, order.Fail(), ErrInvalidTransition)
	require.ErrorIs(t, order.Transition(StatusAwaitingPayment), ErrInvalidTransition)
}

func TestTransition_SameStateIsNoOp(t *testing.T) {
	order, err := NewOrder("ada@example.com", PackageBasic)
	require.NoError(t, err)
	require.NoError(t, order.Complete())

	// Replayed completion events must stay idempotent.
	require.NoError(t, order.Complete())
	require.Equal(t, StatusCompleted, order.PaymentStatus)
}

func TestTransition_LegacyPendingMovesForward(t *testing.T) {
	order := &Order{Email: "ada@example.com", Package: PackageBasic, PaymentStatus: StatusPending}
	require.NoError(t, order.Transition(StatusAwaitingPayment))
	require.NoError(t, order.Complete())
}
