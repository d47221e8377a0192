package store

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/observability/metrics"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// SlotKind names the three independent cache slots. Refreshes touch
// disjoint slots, so concurrent refreshes never conflict.
type SlotKind string

const (
	SlotPosition SlotKind = "position"
	SlotStats    SlotKind = "stats"
	SlotRewards  SlotKind = "rewards"
)

func (s SlotKind) String() string {
	return string(s)
}

// PositionSnapshot is a point-in-time copy of a staker position slot.
// Stale marks a snapshot whose last refresh failed after a previous
// one succeeded; the value shown is the retained older read.
type PositionSnapshot struct {
	Position    types.StakerPosition
	RefreshedAt time.Time
	Stale       bool
}

// StatsSnapshot is a point-in-time copy of the protocol stats slot.
type StatsSnapshot struct {
	Stats       types.ProtocolStats
	RefreshedAt time.Time
	Stale       bool
}

// RewardsSnapshot is a point-in-time copy of the earned rewards slot.
type RewardsSnapshot struct {
	Amount      uint64
	RefreshedAt time.Time
	Stale       bool
}

type slotKey struct {
	Account  types.AccountAddress
	Contract types.ContractAddress
}

// Store holds the locally reconciled staking view-state. Each refresh
// rebuilds its slot wholesale from an authoritative chain read, never
// applying incremental deltas, so out-of-order refresh completions
// resolve to last-writer-wins without corruption. The caches are owned
// exclusively by the store and mutated only through the refresh
// operations.
type Store struct {
	codec        *schema.Codec
	invoker      *invoker.ContractInvoker
	moduleRef    types.ModuleReference
	contractName string

	mu        sync.RWMutex
	positions map[slotKey]*PositionSnapshot
	stats     map[types.ContractAddress]*StatsSnapshot
	rewards   map[slotKey]*RewardsSnapshot

	subMu   sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64
}

func New(
	codec *schema.Codec,
	contractInvoker *invoker.ContractInvoker,
	moduleRef types.ModuleReference,
	contractName string,
) *Store {
	return &Store{
		codec:        codec,
		invoker:      contractInvoker,
		moduleRef:    moduleRef,
		contractName: contractName,
		positions:    make(map[slotKey]*PositionSnapshot),
		stats:        make(map[types.ContractAddress]*StatsSnapshot),
		rewards:      make(map[slotKey]*RewardsSnapshot),
		subs:         make(map[uint64]chan Update),
	}
}

// RefreshStakerPosition rebuilds the position slot for one account
// from the contract's staker info view. The unbonding queue is
// re-sorted ascending by unlock time regardless of the order received.
func (s *Store) RefreshStakerPosition(
	ctx context.Context, account types.AccountAddress, contract types.ContractAddress,
) (*PositionSnapshot, *types.Error) {
	value, err := s.invokeAndDecode(ctx, contract, types.EntrypointGetStakeInfo,
		func(sch *schema.Schema) ([]byte, *types.Error) {
			return s.codec.EncodeParameter(sch, s.contractName, types.EntrypointGetStakeInfo, schema.AccountValue(account))
		}, &account)
	if err != nil {
		return nil, s.reportRefreshFailure(ctx, SlotPosition, err, func() {
			s.markPositionStale(account, contract)
		})
	}

	position, mapErr := mapStakerPosition(*value)
	if mapErr != nil {
		return nil, s.reportRefreshFailure(
			ctx, SlotPosition,
			types.NewError(http.StatusUnprocessableEntity, types.DecodeError, mapErr),
			func() { s.markPositionStale(account, contract) },
		)
	}

	snapshot := &PositionSnapshot{Position: *position, RefreshedAt: time.Now().UTC()}
	s.mu.Lock()
	s.positions[slotKey{Account: account, Contract: contract}] = snapshot
	s.mu.Unlock()

	metrics.RecordRefreshOutcome(SlotPosition.String(), metrics.Success)
	s.notify(Update{Slot: SlotPosition, Account: account, Contract: contract})
	return copyPositionSnapshot(snapshot), nil
}

// RefreshProtocolStats rebuilds the protocol aggregates slot. No
// invoker account is required: the view is account-independent.
func (s *Store) RefreshProtocolStats(
	ctx context.Context, contract types.ContractAddress,
) (*StatsSnapshot, *types.Error) {
	value, err := s.invokeAndDecode(ctx, contract, types.EntrypointView, nil, nil)
	if err != nil {
		return nil, s.reportRefreshFailure(ctx, SlotStats, err, func() {
			s.markStatsStale(contract)
		})
	}

	stats, mapErr := mapProtocolStats(*value)
	if mapErr != nil {
		return nil, s.reportRefreshFailure(
			ctx, SlotStats,
			types.NewError(http.StatusUnprocessableEntity, types.DecodeError, mapErr),
			func() { s.markStatsStale(contract) },
		)
	}

	snapshot := &StatsSnapshot{Stats: *stats, RefreshedAt: time.Now().UTC()}
	s.mu.Lock()
	s.stats[contract] = snapshot
	s.mu.Unlock()

	metrics.RecordRefreshOutcome(SlotStats.String(), metrics.Success)
	s.notify(Update{Slot: SlotStats, Contract: contract})
	snapshotCopy := *snapshot
	return &snapshotCopy, nil
}

// RefreshEarnedRewards rebuilds the earned rewards scalar slot for one
// account.
func (s *Store) RefreshEarnedRewards(
	ctx context.Context, account types.AccountAddress, contract types.ContractAddress,
) (*RewardsSnapshot, *types.Error) {
	value, err := s.invokeAndDecode(ctx, contract, types.EntrypointGetEarnedReward,
		func(sch *schema.Schema) ([]byte, *types.Error) {
			return s.codec.EncodeParameter(sch, s.contractName, types.EntrypointGetEarnedReward, schema.AccountValue(account))
		}, &account)
	if err != nil {
		return nil, s.reportRefreshFailure(ctx, SlotRewards, err, func() {
			s.markRewardsStale(account, contract)
		})
	}

	amount, ok := value.AsU64()
	if !ok {
		return nil, s.reportRefreshFailure(
			ctx, SlotRewards,
			types.NewErrorWithMsg(
				http.StatusUnprocessableEntity, types.DecodeError,
				fmt.Sprintf("earned rewards decoded to %s, expected u64", value.Kind),
			),
			func() { s.markRewardsStale(account, contract) },
		)
	}

	snapshot := &RewardsSnapshot{Amount: amount, RefreshedAt: time.Now().UTC()}
	s.mu.Lock()
	s.rewards[slotKey{Account: account, Contract: contract}] = snapshot
	s.mu.Unlock()

	metrics.RecordRefreshOutcome(SlotRewards.String(), metrics.Success)
	s.notify(Update{Slot: SlotRewards, Account: account, Contract: contract})
	snapshotCopy := *snapshot
	return &snapshotCopy, nil
}

// RefreshAll reconciles all three slots for an account. The refreshes
// are independent and run concurrently; failures are logged per slot
// and do not block the others.
func (s *Store) RefreshAll(
	ctx context.Context, account types.AccountAddress, contract types.ContractAddress,
) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if _, err := s.RefreshStakerPosition(ctx, account, contract); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("staker position refresh failed")
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := s.RefreshProtocolStats(ctx, contract); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("protocol stats refresh failed")
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := s.RefreshEarnedRewards(ctx, account, contract); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("earned rewards refresh failed")
		}
	}()
	wg.Wait()
}

// StakerPosition returns a copy of the cached position slot.
func (s *Store) StakerPosition(
	account types.AccountAddress, contract types.ContractAddress,
) (*PositionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.positions[slotKey{Account: account, Contract: contract}]
	if !ok {
		return nil, false
	}
	return copyPositionSnapshot(snapshot), true
}

// ProtocolStats returns a copy of the cached stats slot.
func (s *Store) ProtocolStats(contract types.ContractAddress) (*StatsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.stats[contract]
	if !ok {
		return nil, false
	}
	snapshotCopy := *snapshot
	return &snapshotCopy, true
}

// EarnedRewards returns a copy of the cached rewards slot.
func (s *Store) EarnedRewards(
	account types.AccountAddress, contract types.ContractAddress,
) (*RewardsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.rewards[slotKey{Account: account, Contract: contract}]
	if !ok {
		return nil, false
	}
	snapshotCopy := *snapshot
	return &snapshotCopy, true
}

// Invalidate discards the cached slots of one (account, contract)
// pair, typically on wallet disconnect. Protocol stats are account
// independent and survive.
func (s *Store) Invalidate(account types.AccountAddress, contract types.ContractAddress) {
	key := slotKey{Account: account, Contract: contract}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, key)
	delete(s.rewards, key)
}

// invokeAndDecode runs the shared refresh pipeline: fetch schema,
// encode the optional parameter, invoke the read entrypoint, decode
// the return value.
func (s *Store) invokeAndDecode(
	ctx context.Context,
	contract types.ContractAddress,
	entrypoint string,
	encodeParam func(*schema.Schema) ([]byte, *types.Error),
	invokerAccount *types.AccountAddress,
) (*schema.Value, *types.Error) {
	sch, err := s.codec.FetchSchema(ctx, s.moduleRef)
	if err != nil {
		return nil, err
	}

	var parameter []byte
	if encodeParam != nil {
		parameter, err = encodeParam(sch)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.invoker.Invoke(
		ctx, contract, invoker.ReceiveName(s.contractName, entrypoint), parameter, invokerAccount,
	)
	if err != nil {
		return nil, err
	}

	return s.codec.DecodeReturnValue(sch, s.contractName, entrypoint, result.ReturnValue)
}

// reportRefreshFailure translates a failed refresh into the error the
// caller sees. Decode-class failures retain the previous cached value
// and surface as STALE_DATA; transport and revert errors pass through
// unchanged (the previous value is also retained).
func (s *Store) reportRefreshFailure(
	ctx context.Context, slot SlotKind, err *types.Error, markStale func(),
) *types.Error {
	metrics.RecordRefreshOutcome(slot.String(), metrics.Error)
	if err.ErrorCode == types.DecodeError || err.ErrorCode == types.SchemaMismatch {
		markStale()
		log.Ctx(ctx).Error().Err(err).
			Str("slot", slot.String()).
			Msg("refresh decode failed, previous cached value retained")
		return types.NewError(http.StatusInternalServerError, types.StaleData, err)
	}
	return err
}

func (s *Store) markPositionStale(account types.AccountAddress, contract types.ContractAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.positions[slotKey{Account: account, Contract: contract}]; ok {
		snapshot.Stale = true
	}
}

func (s *Store) markStatsStale(contract types.ContractAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.stats[contract]; ok {
		snapshot.Stale = true
	}
}

func (s *Store) markRewardsStale(account types.AccountAddress, contract types.ContractAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot, ok := s.rewards[slotKey{Account: account, Contract: contract}]; ok {
		snapshot.Stale = true
	}
}

func copyPositionSnapshot(snapshot *PositionSnapshot) *PositionSnapshot {
	out := *snapshot
	out.Position.Unbonding = append([]types.UnbondingEntry(nil), snapshot.Position.Unbonding...)
	return &out
}

// mapStakerPosition maps the decoded staker info struct into the local
// position shape, re-sorting the unbonding queue ascending by unlock
// time.
func mapStakerPosition(value schema.Value) (*types.StakerPosition, error) {
	amount, err := structU64(value, "amount")
	if err != nil {
		return nil, err
	}
	lastUpdate, err := structU64(value, "timestamp")
	if err != nil {
		return nil, err
	}
	pendingRewards, err := structU64(value, "pending_rewards")
	if err != nil {
		return nil, err
	}
	slashedValue, ok := value.Field("slashed")
	if !ok {
		return nil, fmt.Errorf("staker info struct is missing field %q", "slashed")
	}
	slashed, ok := slashedValue.AsBool()
	if !ok {
		return nil, fmt.Errorf("staker info field %q is %s, expected bool", "slashed", slashedValue.Kind)
	}

	unbondingValue, ok := value.Field("unbonding")
	if !ok {
		return nil, fmt.Errorf("staker info struct is missing field %q", "unbonding")
	}
	if unbondingValue.Kind != schema.KindList {
		return nil, fmt.Errorf("staker info field %q is %s, expected list", "unbonding", unbondingValue.Kind)
	}
	unbonding := make([]types.UnbondingEntry, 0, len(unbondingValue.List))
	for i, entry := range unbondingValue.List {
		entryAmount, err := structU64(entry, "amount")
		if err != nil {
			return nil, fmt.Errorf("unbonding entry %d: %w", i, err)
		}
		unlockTime, err := structU64(entry, "unlock_time")
		if err != nil {
			return nil, fmt.Errorf("unbonding entry %d: %w", i, err)
		}
		unbonding = append(unbonding, types.UnbondingEntry{
			Amount:     entryAmount,
			UnlockTime: int64(unlockTime),
		})
	}
	sort.SliceStable(unbonding, func(i, j int) bool {
		return unbonding[i].UnlockTime < unbonding[j].UnlockTime
	})

	return &types.StakerPosition{
		Amount:         amount,
		PendingRewards: pendingRewards,
		Slashed:        slashed,
		LastUpdate:     int64(lastUpdate),
		Unbonding:      unbonding,
	}, nil
}

// mapProtocolStats maps the decoded contract view struct into the
// read-only aggregates mirror.
func mapProtocolStats(value schema.Value) (*types.ProtocolStats, error) {
	totalStaked, err := structU64(value, "total_staked")
	if err != nil {
		return nil, err
	}
	totalParticipants, err := structU64(value, "total_participants")
	if err != nil {
		return nil, err
	}
	totalRewardsPaid, err := structU64(value, "total_rewards_paid")
	if err != nil {
		return nil, err
	}
	rewardsPool, err := structU64(value, "rewards_pool")
	if err != nil {
		return nil, err
	}
	apr, err := structU64(value, "apr")
	if err != nil {
		return nil, err
	}
	pausedValue, ok := value.Field("paused")
	if !ok {
		return nil, fmt.Errorf("contract view struct is missing field %q", "paused")
	}
	paused, ok := pausedValue.AsBool()
	if !ok {
		return nil, fmt.Errorf("contract view field %q is %s, expected bool", "paused", pausedValue.Kind)
	}

	return &types.ProtocolStats{
		ActiveStakerCount: totalParticipants,
		TotalStaked:       totalStaked,
		TotalRewardsPaid:  totalRewardsPaid,
		RewardsPool:       rewardsPool,
		Apr:               apr,
		Paused:            paused,
	}, nil
}

func structU64(value schema.Value, field string) (uint64, error) {
	fieldValue, ok := value.Field(field)
	if !ok {
		return 0, fmt.Errorf("decoded struct is missing field %q", field)
	}
	n, ok := fieldValue.AsU64()
	if !ok {
		return 0, fmt.Errorf("decoded field %q is %s, expected u64", field, fieldValue.Kind)
	}
	return n, nil
}
