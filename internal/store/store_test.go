package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/testutil/mocks"
	"github.com/eurostake/staking-sync-service/internal/types"
)

var (
	testAccount  = types.AccountAddress{0xaa}
	testContract = types.ContractAddress{Index: 7}
)

func testModuleRef() types.ModuleReference {
	var ref types.ModuleReference
	ref[0] = 1
	return ref
}

var (
	u64Type     = schema.Type{Kind: schema.TypeU64}
	boolType    = schema.Type{Kind: schema.TypeBool}
	accountType = schema.Type{Kind: schema.TypeAccountAddress}

	unbondingEntryType = schema.Type{Kind: schema.TypeStruct, Fields: []schema.Field{
		{Name: "amount", Type: u64Type},
		{Name: "unlock_time", Type: u64Type},
	}}
	stakeInfoType = schema.Type{Kind: schema.TypeStruct, Fields: []schema.Field{
		{Name: "amount", Type: u64Type},
		{Name: "timestamp", Type: u64Type},
		{Name: "unbonding", Type: schema.Type{Kind: schema.TypeList, Elem: &unbondingEntryType}},
		{Name: "slashed", Type: boolType},
		{Name: "pending_rewards", Type: u64Type},
	}}
	viewType = schema.Type{Kind: schema.TypeStruct, Fields: []schema.Field{
		{Name: "paused", Type: boolType},
		{Name: "total_staked", Type: u64Type},
		{Name: "apr", Type: u64Type},
		{Name: "total_participants", Type: u64Type},
		{Name: "total_rewards_paid", Type: u64Type},
		{Name: "rewards_pool", Type: u64Type},
	}}
)

func fixtureSchemaBytes() []byte {
	return schema.Serialize("liquid_staking", schema.SupportedSchemaVersion, []schema.Entrypoint{
		{Name: "getStakeInfo", Param: &accountType, Return: &stakeInfoType},
		{Name: "view", Return: &viewType},
		{Name: "getEarnedRewards", Param: &accountType, Return: &u64Type},
	})
}

func newTestStore(t *testing.T) (*Store, *mocks.LedgerClient) {
	t.Helper()
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("GetEmbeddedSchema", mock.Anything, testModuleRef()).
		Return(fixtureSchemaBytes(), nil).Maybe()

	codec := schema.NewCodec(mockLedger)
	inv := invoker.NewContractInvoker(mockLedger, 10000)
	return New(codec, inv, testModuleRef(), types.StakingContractName), mockLedger
}

func stakeInfoBytes(t *testing.T, amount, pendingRewards uint64, slashed bool, unbonding ...types.UnbondingEntry) []byte {
	t.Helper()
	entries := make([]schema.Value, 0, len(unbonding))
	for _, e := range unbonding {
		entries = append(entries, schema.StructValue(
			schema.NamedValue{Name: "amount", Value: schema.U64Value(e.Amount)},
			schema.NamedValue{Name: "unlock_time", Value: schema.U64Value(uint64(e.UnlockTime))},
		))
	}
	raw, err := schema.EncodeValue(stakeInfoType, schema.StructValue(
		schema.NamedValue{Name: "amount", Value: schema.U64Value(amount)},
		schema.NamedValue{Name: "timestamp", Value: schema.U64Value(1700000000)},
		schema.NamedValue{Name: "unbonding", Value: schema.ListValue(entries...)},
		schema.NamedValue{Name: "slashed", Value: schema.BoolValue(slashed)},
		schema.NamedValue{Name: "pending_rewards", Value: schema.U64Value(pendingRewards)},
	))
	require.NoError(t, err)
	return raw
}

func expectInvoke(mockLedger *mocks.LedgerClient, receiveName string, returnValue []byte) *mock.Call {
	return mockLedger.On("InvokeContract", mock.Anything, mock.MatchedBy(func(req *ledger.InvokeContractRequest) bool {
		return req.ReceiveName == receiveName
	})).Return(&ledger.InvokeContractResponse{
		Success:     true,
		ReturnValue: returnValue,
		EnergyUsed:  10,
	}, nil)
}

func TestRefreshStakerPositionSortsUnbondingQueue(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", stakeInfoBytes(t, 100, 5, false,
		types.UnbondingEntry{Amount: 30, UnlockTime: 3000},
		types.UnbondingEntry{Amount: 10, UnlockTime: 1000},
		types.UnbondingEntry{Amount: 20, UnlockTime: 2000},
	)).Once()

	snapshot, err := store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)

	assert.Equal(t, uint64(100), snapshot.Position.Amount)
	require.Len(t, snapshot.Position.Unbonding, 3)
	assert.Equal(t, int64(1000), snapshot.Position.Unbonding[0].UnlockTime)
	assert.Equal(t, int64(2000), snapshot.Position.Unbonding[1].UnlockTime)
	assert.Equal(t, int64(3000), snapshot.Position.Unbonding[2].UnlockTime)
	assert.False(t, snapshot.Stale)
}

func TestRefreshStakerPositionReplacesWholesale(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo",
		stakeInfoBytes(t, 100, 0, false)).Once()
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", stakeInfoBytes(t, 60, 0, false,
		types.UnbondingEntry{Amount: 40, UnlockTime: 2000},
	)).Once()

	_, err := store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)
	_, err = store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)

	// The second read wins entirely; nothing from the first survives.
	snapshot, ok := store.StakerPosition(testAccount, testContract)
	require.True(t, ok)
	assert.Equal(t, uint64(60), snapshot.Position.Amount)
	require.Len(t, snapshot.Position.Unbonding, 1)
	assert.Equal(t, uint64(40), snapshot.Position.Unbonding[0].Amount)
}

func TestRefreshDecodeFailureRetainsPreviousValue(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo",
		stakeInfoBytes(t, 100, 0, false)).Once()
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", []byte{0xde, 0xad}).Once()

	_, err := store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)

	_, err = store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.NotNil(t, err)
	assert.Equal(t, types.StaleData, err.ErrorCode)

	snapshot, ok := store.StakerPosition(testAccount, testContract)
	require.True(t, ok)
	assert.Equal(t, uint64(100), snapshot.Position.Amount)
	assert.True(t, snapshot.Stale)
}

func TestRefreshProtocolStatsMapsViewFields(t *testing.T) {
	store, mockLedger := newTestStore(t)
	raw, encErr := schema.EncodeValue(viewType, schema.StructValue(
		schema.NamedValue{Name: "paused", Value: schema.BoolValue(true)},
		schema.NamedValue{Name: "total_staked", Value: schema.U64Value(90000)},
		schema.NamedValue{Name: "apr", Value: schema.U64Value(750)},
		schema.NamedValue{Name: "total_participants", Value: schema.U64Value(12)},
		schema.NamedValue{Name: "total_rewards_paid", Value: schema.U64Value(1400)},
		schema.NamedValue{Name: "rewards_pool", Value: schema.U64Value(5000)},
	))
	require.NoError(t, encErr)
	expectInvoke(mockLedger, "liquid_staking.view", raw).Once()

	snapshot, err := store.RefreshProtocolStats(context.Background(), testContract)
	require.Nil(t, err)

	assert.Equal(t, uint64(90000), snapshot.Stats.TotalStaked)
	assert.Equal(t, uint64(12), snapshot.Stats.ActiveStakerCount)
	assert.Equal(t, uint64(1400), snapshot.Stats.TotalRewardsPaid)
	assert.Equal(t, uint64(5000), snapshot.Stats.RewardsPool)
	assert.Equal(t, uint64(750), snapshot.Stats.Apr)
	assert.True(t, snapshot.Stats.Paused)
}

func TestRefreshEarnedRewardsSlashedAccountStaysNumeric(t *testing.T) {
	store, mockLedger := newTestStore(t)
	zero, encErr := schema.EncodeValue(u64Type, schema.U64Value(0))
	require.NoError(t, encErr)
	expectInvoke(mockLedger, "liquid_staking.getEarnedRewards", zero).Once()

	snapshot, err := store.RefreshEarnedRewards(context.Background(), testAccount, testContract)
	require.Nil(t, err)
	assert.Equal(t, uint64(0), snapshot.Amount)
	assert.False(t, snapshot.Stale)
}

func TestAccessorsReturnCopies(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", stakeInfoBytes(t, 100, 0, false,
		types.UnbondingEntry{Amount: 10, UnlockTime: 1000},
	)).Once()

	_, err := store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)

	snapshot, ok := store.StakerPosition(testAccount, testContract)
	require.True(t, ok)
	snapshot.Position.Unbonding[0].Amount = 999
	snapshot.Position.Amount = 1

	again, ok := store.StakerPosition(testAccount, testContract)
	require.True(t, ok)
	assert.Equal(t, uint64(100), again.Position.Amount)
	assert.Equal(t, uint64(10), again.Position.Unbonding[0].Amount)
}

func TestInvalidateDropsAccountSlotsKeepsStats(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", stakeInfoBytes(t, 100, 0, false)).Once()
	raw, encErr := schema.EncodeValue(viewType, schema.StructValue(
		schema.NamedValue{Name: "paused", Value: schema.BoolValue(false)},
		schema.NamedValue{Name: "total_staked", Value: schema.U64Value(1)},
		schema.NamedValue{Name: "apr", Value: schema.U64Value(1)},
		schema.NamedValue{Name: "total_participants", Value: schema.U64Value(1)},
		schema.NamedValue{Name: "total_rewards_paid", Value: schema.U64Value(1)},
		schema.NamedValue{Name: "rewards_pool", Value: schema.U64Value(1)},
	))
	require.NoError(t, encErr)
	expectInvoke(mockLedger, "liquid_staking.view", raw).Once()

	ctx := context.Background()
	_, err := store.RefreshStakerPosition(ctx, testAccount, testContract)
	require.Nil(t, err)
	_, err = store.RefreshProtocolStats(ctx, testContract)
	require.Nil(t, err)

	store.Invalidate(testAccount, testContract)

	_, ok := store.StakerPosition(testAccount, testContract)
	assert.False(t, ok)
	_, ok = store.ProtocolStats(testContract)
	assert.True(t, ok)
}

func TestSubscribeReceivesSlotUpdates(t *testing.T) {
	store, mockLedger := newTestStore(t)
	expectInvoke(mockLedger, "liquid_staking.getStakeInfo", stakeInfoBytes(t, 100, 0, false)).Once()

	updates, cancel := store.Subscribe()
	defer cancel()

	_, err := store.RefreshStakerPosition(context.Background(), testAccount, testContract)
	require.Nil(t, err)

	select {
	case update := <-updates:
		assert.Equal(t, SlotPosition, update.Slot)
		assert.Equal(t, testAccount, update.Account)
	default:
		t.Fatal("expected a buffered slot update")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	store, _ := newTestStore(t)

	updates, cancel := store.Subscribe()
	cancel()

	_, open := <-updates
	assert.False(t, open)
	// Second cancel is a no-op.
	cancel()
}
