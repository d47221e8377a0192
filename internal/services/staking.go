package services

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/orchestrator"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// Stake deposits tokens into the staking contract. The deposit is a
// single token transfer carrying a receive hook, so the staking
// contract records the position in the same transaction.
func (s *Services) Stake(ctx context.Context, amount uint64) (*orchestrator.Outcome, *types.Error) {
	if amount == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "stake amount must be positive",
		)
	}

	step, err := s.tokenTransferStep(
		ctx, types.PayloadStake, amount, s.cfg.Contracts.StakingContract,
		invoker.ReceiveName(types.StakingContractName, types.EntrypointStake),
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Uint64("amount", amount).Msg("executing stake")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// InitiateUnstake moves part of the active stake into the unbonding
// queue. Tokens stay locked until the unbonding period elapses.
func (s *Services) InitiateUnstake(ctx context.Context, amount uint64) (*orchestrator.Outcome, *types.Error) {
	if amount == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "unstake amount must be positive",
		)
	}

	step, err := s.stakingStep(ctx, types.PayloadUnstake, types.EntrypointUnstake, schema.U64Value(amount))
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Uint64("amount", amount).Msg("executing unstake")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// CompleteUnstake releases every unbonding entry whose unlock time has
// passed. Eligibility is decided by the contract; the cached queue is
// only a preview.
func (s *Services) CompleteUnstake(ctx context.Context) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(
		ctx, types.PayloadCompleteUnstake, types.EntrypointCompleteUnstake, schema.UnitValue(),
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Msg("executing complete unstake")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// ClaimRewards pays out the caller's accrued rewards.
func (s *Services) ClaimRewards(ctx context.Context) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(
		ctx, types.PayloadClaimRewards, types.EntrypointClaimRewards, schema.UnitValue(),
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Msg("executing claim rewards")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// FundRewards tops up the rewards pool: a token transfer into the
// staking contract followed by the fundRewards accounting call. The
// two steps commit independently, so a failure of the second step
// after the first finalized surfaces as a partial failure whose
// recovery is RetryFundRewardsAccounting.
func (s *Services) FundRewards(ctx context.Context, amount uint64) (*orchestrator.Outcome, *types.Error) {
	if amount == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "fund amount must be positive",
		)
	}

	transferStep, err := s.tokenTransferStep(ctx, types.PayloadTransfer, amount, s.cfg.Contracts.StakingContract, "")
	if err != nil {
		return nil, err
	}
	accountingStep, err := s.stakingStep(
		ctx, types.PayloadFundRewards, types.EntrypointFundRewards, schema.U64Value(amount),
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Uint64("amount", amount).Msg("executing fund rewards")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*transferStep, *accountingStep})
}

// RetryFundRewardsAccounting re-issues only the accounting step of a
// partially failed FundRewards, once the caller decided the tokens
// already arrived.
func (s *Services) RetryFundRewardsAccounting(ctx context.Context, amount uint64) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(
		ctx, types.PayloadFundRewards, types.EntrypointFundRewards, schema.U64Value(amount),
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Uint64("amount", amount).Msg("retrying fund rewards accounting step")
	return s.orchestrator.RetryStep(ctx, *step)
}
