package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/orchestrator"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/store"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// Services bundles the staking operations exposed to the API layer.
// Write operations build schema-encoded parameters, run them through
// the transaction orchestrator and rely on its post-commit hook to
// reconcile the state store. Read operations proxy the store's cached
// slots.
type Services struct {
	cfg          *config.Config
	codec        *schema.Codec
	invoker      *invoker.ContractInvoker
	orchestrator *orchestrator.Orchestrator
	store        *store.Store
}

func New(
	ctx context.Context,
	cfg *config.Config,
	codec *schema.Codec,
	contractInvoker *invoker.ContractInvoker,
	txOrchestrator *orchestrator.Orchestrator,
	stateStore *store.Store,
	connectedAccount func(ctx context.Context) (types.AccountAddress, *types.Error),
) (*Services, error) {
	s := &Services{
		cfg:          cfg,
		codec:        codec,
		invoker:      contractInvoker,
		orchestrator: txOrchestrator,
		store:        stateStore,
	}

	txOrchestrator.SetPostCommitHook(func(hookCtx context.Context) {
		account, err := connectedAccount(hookCtx)
		if err != nil {
			log.Ctx(hookCtx).Warn().Err(err).Msg("post-commit refresh skipped, no connected account")
			return
		}
		stateStore.RefreshAll(hookCtx, account, cfg.Contracts.StakingContract)
	})

	return s, nil
}

// Disconnect drops the cached account-scoped state, to be called when
// the wallet connection ends.
func (s *Services) Disconnect(account types.AccountAddress) {
	s.store.Invalidate(account, s.cfg.Contracts.StakingContract)
}

// stakingSchema fetches the parsed schema of the staking contract's
// deployed module.
func (s *Services) stakingSchema(ctx context.Context) (*schema.Schema, *types.Error) {
	return s.codec.FetchSchema(ctx, s.cfg.Contracts.StakingModule)
}

// tokenSchema fetches the parsed schema of the token contract's
// deployed module.
func (s *Services) tokenSchema(ctx context.Context) (*schema.Schema, *types.Error) {
	return s.codec.FetchSchema(ctx, s.cfg.Contracts.TokenModule)
}

// stakingStep builds one orchestrator step targeting the staking
// contract with the configured energy ceiling for the payload kind.
func (s *Services) stakingStep(
	ctx context.Context, kind types.PayloadKind, entrypoint string, param schema.Value,
) (*orchestrator.Step, *types.Error) {
	sch, err := s.stakingSchema(ctx)
	if err != nil {
		return nil, err
	}
	encoded, err := s.codec.EncodeParameter(sch, types.StakingContractName, entrypoint, param)
	if err != nil {
		return nil, err
	}
	limit, limitErr := s.cfg.Transaction.EnergyLimitFor(kind)
	if limitErr != nil {
		return nil, types.NewInternalServiceError(limitErr)
	}
	return &orchestrator.Step{
		Target:           s.cfg.Contracts.StakingContract,
		ReceiveName:      invoker.ReceiveName(types.StakingContractName, entrypoint),
		Kind:             kind,
		EncodedParameter: encoded,
		EnergyLimit:      limit,
	}, nil
}

// tokenTransferStep builds a token contract transfer step. A non-empty
// hook entrypoint makes the receiving contract process the tokens in
// the same transaction.
func (s *Services) tokenTransferStep(
	ctx context.Context, kind types.PayloadKind, amount uint64, to types.ContractAddress, hookEntrypoint string,
) (*orchestrator.Step, *types.Error) {
	sch, err := s.tokenSchema(ctx)
	if err != nil {
		return nil, err
	}
	param := schema.StructValue(
		schema.NamedValue{Name: "amount", Value: schema.U64Value(amount)},
		schema.NamedValue{Name: "to", Value: schema.ContractValue(to)},
		schema.NamedValue{Name: "receive_name", Value: schema.StringValue(hookEntrypoint)},
	)
	encoded, err := s.codec.EncodeParameter(sch, types.TokenContractName, types.EntrypointTransfer, param)
	if err != nil {
		return nil, err
	}
	limit, limitErr := s.cfg.Transaction.EnergyLimitFor(kind)
	if limitErr != nil {
		return nil, types.NewInternalServiceError(limitErr)
	}
	return &orchestrator.Step{
		Target:           s.cfg.Contracts.TokenContract,
		ReceiveName:      invoker.ReceiveName(types.TokenContractName, types.EntrypointTransfer),
		Kind:             kind,
		EncodedParameter: encoded,
		EnergyLimit:      limit,
	}, nil
}
