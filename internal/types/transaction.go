package types

import "fmt"

// PayloadKind identifies what a transaction step does. Energy ceilings
// are configured per kind.
type PayloadKind string

const (
	PayloadTransfer        PayloadKind = "transfer"
	PayloadStake           PayloadKind = "stake"
	PayloadUnstake         PayloadKind = "unstake"
	PayloadCompleteUnstake PayloadKind = "complete_unstake"
	PayloadClaimRewards    PayloadKind = "claim_rewards"
	PayloadFundRewards     PayloadKind = "fund_rewards"
	PayloadAdmin           PayloadKind = "admin"
)

func (p PayloadKind) ToString() string {
	return string(p)
}

func PayloadKindFromString(s string) (PayloadKind, error) {
	switch s {
	case PayloadTransfer.ToString():
		return PayloadTransfer, nil
	case PayloadStake.ToString():
		return PayloadStake, nil
	case PayloadUnstake.ToString():
		return PayloadUnstake, nil
	case PayloadCompleteUnstake.ToString():
		return PayloadCompleteUnstake, nil
	case PayloadClaimRewards.ToString():
		return PayloadClaimRewards, nil
	case PayloadFundRewards.ToString():
		return PayloadFundRewards, nil
	case PayloadAdmin.ToString():
		return PayloadAdmin, nil
	default:
		return "", fmt.Errorf("unknown payload kind: %s", s)
	}
}

// StepStatus is the per-step state machine:
// Built -> Signed -> Submitted -> {Finalized | Rejected | TimedOut}.
// Built and Signed are local; Submitted begins the bounded finalization
// wait. TimedOut means the wait was abandoned, not that the transaction
// failed.
type StepStatus string

const (
	StepBuilt     StepStatus = "built"
	StepSigned    StepStatus = "signed"
	StepSubmitted StepStatus = "submitted"
	StepFinalized StepStatus = "finalized"
	StepRejected  StepStatus = "rejected"
	StepTimedOut  StepStatus = "timed_out"
)

func (s StepStatus) ToString() string {
	return string(s)
}

// IsTerminal reports whether the status ends the step's lifecycle.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepFinalized, StepRejected, StepTimedOut:
		return true
	default:
		return false
	}
}

// QualifiedPreviousStates returns the statuses a step may transition
// from into the given status.
func QualifiedPreviousStates(to StepStatus) []StepStatus {
	switch to {
	case StepSigned:
		return []StepStatus{StepBuilt}
	case StepSubmitted:
		return []StepStatus{StepSigned}
	case StepFinalized, StepRejected, StepTimedOut:
		return []StepStatus{StepSubmitted}
	default:
		return nil
	}
}
