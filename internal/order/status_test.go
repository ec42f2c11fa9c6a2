package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingAgentResponse, StatusAccepted, true},
		{StatusPendingAgentResponse, StatusRejected, true},
		{StatusPendingAgentResponse, StatusPublic, true},
		{StatusPublic, StatusAccepted, true},
		{StatusPublic, StatusRejected, true},
		{StatusAccepted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},

		{StatusPublic, StatusInProgress, false},
		{StatusPublic, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, false},
		{StatusAccepted, StatusRejected, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusRejected, StatusPublic, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPublic.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPublic))
	assert.True(t, ValidStatus(StatusInProgress))
	assert.False(t, ValidStatus(Status("shipped")))
	assert.False(t, ValidStatus(Status("")))
}

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentFailed))
	assert.True(t, CanTransitionPayment(PaymentFailed, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))

	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPending))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentPending, PaymentRefunded))
}
