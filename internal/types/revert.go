package types

import "strings"

// RevertReason is the domain-mapped reason of a contract rejection.
type RevertReason string

const (
	ReasonOnlyAdmin           RevertReason = "only_admin"
	ReasonUnauthorized        RevertReason = "unauthorized"
	ReasonInsufficientFunds   RevertReason = "insufficient_funds"
	ReasonPaused              RevertReason = "paused"
	ReasonAlreadySlashed      RevertReason = "already_slashed"
	ReasonUnbondingNotElapsed RevertReason = "unbonding_not_elapsed"
	ReasonNoStakeFound        RevertReason = "no_stake_found"
	ReasonInvalidAmount       RevertReason = "invalid_amount"
	ReasonNoRewardsAvailable  RevertReason = "no_rewards_available"
	ReasonRewardsPoolDepleted RevertReason = "rewards_pool_depleted"
	ReasonEnergyExceeded      RevertReason = "energy_exceeded"
	ReasonUnknown             RevertReason = "unknown"
)

func (r RevertReason) String() string {
	return string(r)
}

// Stable reject codes emitted by the staking contract. The contract
// assigns each error variant a fixed negative code, which survives
// node upgrades where revert text may not.
const (
	rejectUnauthorized          int32 = -2
	rejectInvalidStakeAmount    int32 = -3
	rejectNoStakeFound          int32 = -4
	rejectOnlyAdmin             int32 = -6
	rejectContractPaused        int32 = -15
	rejectInsufficientFunds     int32 = -16
	rejectInvalidUnstakeAmount  int32 = -25
	rejectUnbondingPeriodNotMet int32 = -26
	rejectAlreadySlashed        int32 = -27
	rejectInsufficientRewards   int32 = -28
	rejectNoRewardsAvailable    int32 = -29
)

// ReasonFromRejectCode maps a structured contract reject code to a
// revert reason. Returns ReasonUnknown for codes outside the known set.
func ReasonFromRejectCode(code int32) RevertReason {
	switch code {
	case rejectUnauthorized:
		return ReasonUnauthorized
	case rejectInvalidStakeAmount, rejectInvalidUnstakeAmount:
		return ReasonInvalidAmount
	case rejectNoStakeFound:
		return ReasonNoStakeFound
	case rejectOnlyAdmin:
		return ReasonOnlyAdmin
	case rejectContractPaused:
		return ReasonPaused
	case rejectInsufficientFunds:
		return ReasonInsufficientFunds
	case rejectUnbondingPeriodNotMet:
		return ReasonUnbondingNotElapsed
	case rejectAlreadySlashed:
		return ReasonAlreadySlashed
	case rejectInsufficientRewards:
		return ReasonRewardsPoolDepleted
	case rejectNoRewardsAvailable:
		return ReasonNoRewardsAvailable
	default:
		return ReasonUnknown
	}
}

// revertTextPatterns maps known substrings of free-text revert reasons
// to revert reasons. Only consulted when the node provides no
// structured reject code.
var revertTextPatterns = []struct {
	substring string
	reason    RevertReason
}{
	{"only admin", ReasonOnlyAdmin},
	{"onlyadmin", ReasonOnlyAdmin},
	{"unauthorized", ReasonUnauthorized},
	{"insufficient funds", ReasonInsufficientFunds},
	{"insufficient balance", ReasonInsufficientFunds},
	{"paused", ReasonPaused},
	{"already slashed", ReasonAlreadySlashed},
	{"unbonding period", ReasonUnbondingNotElapsed},
	{"no stake found", ReasonNoStakeFound},
	{"no rewards", ReasonNoRewardsAvailable},
	{"rewards pool", ReasonRewardsPoolDepleted},
	{"energy", ReasonEnergyExceeded},
	{"out of energy", ReasonEnergyExceeded},
}

// ReasonFromRevertText maps free-text revert output to a revert reason
// by substring matching, falling back to ReasonUnknown.
func ReasonFromRevertText(text string) RevertReason {
	lowered := strings.ToLower(text)
	for _, p := range revertTextPatterns {
		if strings.Contains(lowered, p.substring) {
			return p.reason
		}
	}
	return ReasonUnknown
}
