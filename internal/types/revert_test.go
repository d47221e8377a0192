package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonFromRejectCode(t *testing.T) {
	cases := []struct {
		code int32
		want RevertReason
	}{
		{-2, ReasonUnauthorized},
		{-3, ReasonInvalidAmount},
		{-4, ReasonNoStakeFound},
		{-6, ReasonOnlyAdmin},
		{-15, ReasonPaused},
		{-16, ReasonInsufficientFunds},
		{-25, ReasonInvalidAmount},
		{-26, ReasonUnbondingNotElapsed},
		{-27, ReasonAlreadySlashed},
		{-28, ReasonRewardsPoolDepleted},
		{-29, ReasonNoRewardsAvailable},
		{-9999, ReasonUnknown},
		{0, ReasonUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ReasonFromRejectCode(tc.code), "code %d", tc.code)
	}
}

func TestReasonFromRevertText(t *testing.T) {
	cases := []struct {
		text string
		want RevertReason
	}{
		{"runtime failure: Only admin can call this", ReasonOnlyAdmin},
		{"UNAUTHORIZED sender", ReasonUnauthorized},
		{"transfer failed: insufficient funds", ReasonInsufficientFunds},
		{"contract is Paused", ReasonPaused},
		{"account already slashed", ReasonAlreadySlashed},
		{"unbonding period not met", ReasonUnbondingNotElapsed},
		{"no stake found for account", ReasonNoStakeFound},
		{"no rewards available", ReasonNoRewardsAvailable},
		{"rewards pool depleted", ReasonRewardsPoolDepleted},
		{"interrupted: out of energy", ReasonEnergyExceeded},
		{"something novel happened", ReasonUnknown},
		{"", ReasonUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ReasonFromRevertText(tc.text), "text %q", tc.text)
	}
}

func TestUnbondingEntryEligibleBoundary(t *testing.T) {
	entry := UnbondingEntry{Amount: 10, UnlockTime: 1700000000}

	assert.False(t, entry.Eligible(1699999999))
	// Unlock time is inclusive: exactly at the boundary is eligible.
	assert.True(t, entry.Eligible(1700000000))
	assert.True(t, entry.Eligible(1700000001))
}
