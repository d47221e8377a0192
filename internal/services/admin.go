package services

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/orchestrator"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// Admin operations are single-step owner entrypoints. The contract
// enforces the admin check; a non-admin caller gets ONLY_ADMIN back.

// SetPaused toggles the contract's pause flag.
func (s *Services) SetPaused(ctx context.Context, paused bool) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(ctx, types.PayloadAdmin, types.EntrypointSetPaused, schema.BoolValue(paused))
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Bool("paused", paused).Msg("executing set paused")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// UpdateApr sets the advertised reward rate, in basis points.
func (s *Services) UpdateApr(ctx context.Context, aprBps uint64) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(ctx, types.PayloadAdmin, types.EntrypointUpdateApr, schema.U64Value(aprBps))
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Uint64("aprBps", aprBps).Msg("executing update apr")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// Slash marks a staker's position as slashed. Irreversible on the
// contract side; slashing an already slashed account rejects with
// ALREADY_SLASHED.
func (s *Services) Slash(ctx context.Context, account types.AccountAddress) (*orchestrator.Outcome, *types.Error) {
	step, err := s.stakingStep(ctx, types.PayloadAdmin, types.EntrypointSlash, schema.AccountValue(account))
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("account", account.Hex()).Msg("executing slash")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}

// WithdrawToken moves tokens held by the staking contract to an
// account. Guarded by the contract's admin check.
func (s *Services) WithdrawToken(
	ctx context.Context, to types.AccountAddress, amount uint64,
) (*orchestrator.Outcome, *types.Error) {
	if amount == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "withdraw amount must be positive",
		)
	}

	param := schema.StructValue(
		schema.NamedValue{Name: "to", Value: schema.AccountValue(to)},
		schema.NamedValue{Name: "amount", Value: schema.U64Value(amount)},
	)
	step, err := s.stakingStep(ctx, types.PayloadAdmin, types.EntrypointWithdrawToken, param)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("to", to.Hex()).
		Uint64("amount", amount).
		Msg("executing withdraw token")
	return s.orchestrator.Execute(ctx, []orchestrator.Step{*step})
}
