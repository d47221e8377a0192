package invoker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/observability/metrics"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// InvokeResult is the decoded-free outcome of a successful read-only
// invocation. Callers decode ReturnValue against the schema.
type InvokeResult struct {
	ReturnValue []byte
	EnergyUsed  uint64
}

// ContractInvoker issues read-only invocations against the ledger node.
// Invocations never mutate chain state and require no signature, so
// callers may retry freely; the invoker itself never retries.
type ContractInvoker struct {
	ledger      ledger.Client
	energyLimit uint64
}

// NewContractInvoker creates an invoker with a fixed energy ceiling for
// read-only invocations.
func NewContractInvoker(ledgerClient ledger.Client, energyLimit uint64) *ContractInvoker {
	return &ContractInvoker{
		ledger:      ledgerClient,
		energyLimit: energyLimit,
	}
}

// ReceiveName composes the on-wire receive name of an entrypoint.
func ReceiveName(contract, entrypoint string) string {
	return fmt.Sprintf("%s.%s", contract, entrypoint)
}

// Invoke runs one read-only invocation. A contract rejection is mapped
// to a domain revert reason: the structured reject code is matched
// first, free revert text second.
func (i *ContractInvoker) Invoke(
	ctx context.Context,
	contract types.ContractAddress,
	receiveName string,
	parameter []byte,
	invokerAccount *types.AccountAddress,
) (*InvokeResult, *types.Error) {
	timer := metrics.StartInvokeDurationTimer(receiveName)

	resp, err := i.ledger.InvokeContract(ctx, &ledger.InvokeContractRequest{
		Contract:    contract,
		ReceiveName: receiveName,
		Parameter:   parameter,
		Invoker:     invokerAccount,
		EnergyLimit: i.energyLimit,
	})
	if err != nil {
		timer(metrics.Error)
		return nil, err
	}

	if !resp.Success {
		timer(metrics.Error)
		reason := MapRevert(resp.RejectCode, resp.RejectReason)
		log.Ctx(ctx).Warn().
			Str("receiveName", receiveName).
			Str("reason", reason.String()).
			Str("revertText", resp.RejectReason).
			Msg("read-only invocation reverted")
		return nil, types.NewRevertError(reason, resp.RejectReason)
	}

	timer(metrics.Success)
	return &InvokeResult{
		ReturnValue: resp.ReturnValue,
		EnergyUsed:  resp.EnergyUsed,
	}, nil
}

// MapRevert derives a revert reason from an invocation failure. The
// structured reject code is deterministic and preferred; substring
// matching on revert text is the fallback for genuinely free-text
// reasons.
func MapRevert(rejectCode *int32, revertText string) types.RevertReason {
	if rejectCode != nil {
		if reason := types.ReasonFromRejectCode(*rejectCode); reason != types.ReasonUnknown {
			return reason
		}
	}
	return types.ReasonFromRevertText(revertText)
}
