package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/store"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// StakerPosition returns the cached position of the connected account,
// refreshing it first when no snapshot exists yet.
func (s *Services) StakerPosition(ctx context.Context, account types.AccountAddress) (*store.PositionSnapshot, *types.Error) {
	if snapshot, ok := s.store.StakerPosition(account, s.cfg.Contracts.StakingContract); ok {
		return snapshot, nil
	}
	return s.store.RefreshStakerPosition(ctx, account, s.cfg.Contracts.StakingContract)
}

// ProtocolStats returns the cached protocol aggregates, refreshing
// first when no snapshot exists yet.
func (s *Services) ProtocolStats(ctx context.Context) (*store.StatsSnapshot, *types.Error) {
	if snapshot, ok := s.store.ProtocolStats(s.cfg.Contracts.StakingContract); ok {
		return snapshot, nil
	}
	return s.store.RefreshProtocolStats(ctx, s.cfg.Contracts.StakingContract)
}

// EarnedRewards returns the cached earned rewards of an account,
// refreshing first when no snapshot exists yet.
func (s *Services) EarnedRewards(ctx context.Context, account types.AccountAddress) (*store.RewardsSnapshot, *types.Error) {
	if snapshot, ok := s.store.EarnedRewards(account, s.cfg.Contracts.StakingContract); ok {
		return snapshot, nil
	}
	return s.store.RefreshEarnedRewards(ctx, account, s.cfg.Contracts.StakingContract)
}

// UserNonce reads an account's signing nonce directly from the
// contract. Nonces are consumed per signed message, so this read is
// never cached.
func (s *Services) UserNonce(ctx context.Context, account types.AccountAddress) (uint64, *types.Error) {
	sch, err := s.stakingSchema(ctx)
	if err != nil {
		return 0, err
	}
	param, err := s.codec.EncodeParameter(
		sch, types.StakingContractName, types.EntrypointGetUserNonce, schema.AccountValue(account),
	)
	if err != nil {
		return 0, err
	}
	result, err := s.invoker.Invoke(
		ctx, s.cfg.Contracts.StakingContract,
		invoker.ReceiveName(types.StakingContractName, types.EntrypointGetUserNonce),
		param, &account,
	)
	if err != nil {
		return 0, err
	}
	value, err := s.codec.DecodeReturnValue(
		sch, types.StakingContractName, types.EntrypointGetUserNonce, result.ReturnValue,
	)
	if err != nil {
		return 0, err
	}
	nonce, ok := value.AsU64()
	if !ok {
		return 0, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.DecodeError,
			fmt.Sprintf("user nonce decoded to %s, expected u64", value.Kind),
		)
	}
	return nonce, nil
}
