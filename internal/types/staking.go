package types

// Contract and entrypoint names of the staking contract surface this
// service consumes. Receive names on the wire are "<contract>.<entrypoint>".
const (
	StakingContractName = "liquid_staking"
	TokenContractName   = "stable_token"

	EntrypointStake           = "stake"
	EntrypointUnstake         = "unstake"
	EntrypointCompleteUnstake = "completeUnstake"
	EntrypointClaimRewards    = "claimRewards"
	EntrypointFundRewards     = "fundRewards"
	EntrypointSetPaused       = "setPaused"
	EntrypointUpdateApr       = "updateApr"
	EntrypointSlash           = "slash"
	EntrypointWithdrawToken   = "withdrawToken"
	EntrypointGetStakeInfo    = "getStakeInfo"
	EntrypointView            = "view"
	EntrypointGetEarnedReward = "getEarnedRewards"
	EntrypointGetUserNonce    = "getUserNonce"
	EntrypointTransfer        = "transfer"
)

// UnbondingEntry is one pending withdrawal of the unbonding queue.
type UnbondingEntry struct {
	// Amount in integer token units.
	Amount uint64 `json:"amount"`
	// UnlockTime is the unix timestamp (seconds) at which the entry
	// becomes withdrawable.
	UnlockTime int64 `json:"unlock_time"`
}

// Eligible reports whether the entry can be completed at the given unix
// time. The boundary is inclusive: an entry unlocking exactly now is
// withdrawable.
func (u UnbondingEntry) Eligible(now int64) bool {
	return u.UnlockTime <= now
}

// StakerPosition is the locally reconciled staking position of one
// account with one contract. It is rebuilt wholesale from an
// authoritative chain read on every refresh, never patched in place.
type StakerPosition struct {
	Amount         uint64           `json:"amount"`
	PendingRewards uint64           `json:"pending_rewards"`
	Slashed        bool             `json:"slashed"`
	// LastUpdate is the unix timestamp (seconds) of the last on-chain
	// stake mutation, as reported by the contract.
	LastUpdate int64            `json:"last_update"`
	// Unbonding is kept sorted ascending by UnlockTime.
	Unbonding []UnbondingEntry `json:"unbonding"`
}

// ProtocolStats mirrors the contract-maintained aggregates. Read-only:
// never mutated locally.
type ProtocolStats struct {
	ActiveStakerCount uint64 `json:"active_staker_count"`
	TotalStaked       uint64 `json:"total_staked"`
	TotalRewardsPaid  uint64 `json:"total_rewards_paid"`
	RewardsPool       uint64 `json:"rewards_pool"`
	Apr               uint64 `json:"apr"`
	Paused            bool   `json:"paused"`
}
