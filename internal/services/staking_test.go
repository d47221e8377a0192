package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/clients/wallet"
	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/orchestrator"
	"github.com/eurostake/staking-sync-service/internal/schema"
	"github.com/eurostake/staking-sync-service/internal/store"
	"github.com/eurostake/staking-sync-service/internal/testutil/mocks"
	"github.com/eurostake/staking-sync-service/internal/types"
)

var (
	testSender         = types.AccountAddress{0xaa}
	testStakingAddress = types.ContractAddress{Index: 7}
	testTokenAddress   = types.ContractAddress{Index: 8}
)

func moduleRef(first byte) types.ModuleReference {
	var ref types.ModuleReference
	ref[0] = first
	return ref
}

var (
	u64Type     = schema.Type{Kind: schema.TypeU64}
	accountType = schema.Type{Kind: schema.TypeAccountAddress}
	boolType    = schema.Type{Kind: schema.TypeBool}

	transferType = schema.Type{Kind: schema.TypeStruct, Fields: []schema.Field{
		{Name: "amount", Type: u64Type},
		{Name: "to", Type: schema.Type{Kind: schema.TypeContractAddress}},
		{Name: "receive_name", Type: schema.Type{Kind: schema.TypeString}},
	}}
	withdrawType = schema.Type{Kind: schema.TypeStruct, Fields: []schema.Field{
		{Name: "to", Type: accountType},
		{Name: "amount", Type: u64Type},
	}}
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
)

func stakingSchemaBytes() []byte {
	return schema.Serialize(types.StakingContractName, schema.SupportedSchemaVersion, []schema.Entrypoint{
		{Name: "stake", Param: &u64Type},
		{Name: "unstake", Param: &u64Type},
		{Name: "completeUnstake"},
		{Name: "claimRewards"},
		{Name: "fundRewards", Param: &u64Type},
		{Name: "setPaused", Param: &boolType},
		{Name: "updateApr", Param: &u64Type},
		{Name: "slash", Param: &accountType},
		{Name: "withdrawToken", Param: &withdrawType},
		{Name: "getUserNonce", Param: &accountType, Return: &u64Type},
		{Name: "getStakeInfo", Param: &accountType, Return: &stakeInfoType},
	})
}

func tokenSchemaBytes() []byte {
	return schema.Serialize(types.TokenContractName, schema.SupportedSchemaVersion, []schema.Entrypoint{
		{Name: "transfer", Param: &transferType},
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Contracts: config.ContractsConfig{
			StakingContract: testStakingAddress,
			TokenContract:   testTokenAddress,
			StakingModule:   moduleRef(1),
			TokenModule:     moduleRef(2),
		},
		Transaction: config.TransactionConfig{
			EnergyLimits: map[string]uint64{
				"transfer":         5000,
				"stake":            7000,
				"unstake":          7000,
				"complete_unstake": 7000,
				"claim_rewards":    7000,
				"fund_rewards":     8000,
				"admin":            4000,
			},
			RefreshGrace:    10 * time.Millisecond,
			RecordRetention: time.Minute,
		},
	}
}

func newTestServices(t *testing.T) (*Services, *mocks.LedgerClient, *mocks.WalletClient) {
	t.Helper()
	mockLedger := new(mocks.LedgerClient)
	mockWallet := new(mocks.WalletClient)
	mockLedger.On("GetEmbeddedSchema", mock.Anything, moduleRef(1)).Return(stakingSchemaBytes(), nil).Maybe()
	mockLedger.On("GetEmbeddedSchema", mock.Anything, moduleRef(2)).Return(tokenSchemaBytes(), nil).Maybe()
	mockWallet.On("ConnectedAccount", mock.Anything).Return(testSender, nil).Maybe()
	// The post-commit refresh hook fires asynchronously after
	// successful operations; its reads are not under test here.
	mockLedger.On("InvokeContract", mock.Anything, mock.MatchedBy(func(req *ledger.InvokeContractRequest) bool {
		switch req.ReceiveName {
		case "liquid_staking.getStakeInfo", "liquid_staking.view", "liquid_staking.getEarnedRewards":
			return true
		}
		return false
	})).Return(&ledger.InvokeContractResponse{
		Success: true,
	}, nil).Maybe()

	cfg := testConfig()
	codec := schema.NewCodec(mockLedger)
	contractInvoker := invoker.NewContractInvoker(mockLedger, 10000)
	txOrchestrator := orchestrator.New(mockLedger, mockWallet, &cfg.Transaction, time.Second)
	stateStore := store.New(codec, contractInvoker, cfg.Contracts.StakingModule, types.StakingContractName)

	services, err := New(
		context.Background(), cfg, codec, contractInvoker, txOrchestrator, stateStore,
		func(ctx context.Context) (types.AccountAddress, *types.Error) {
			return mockWallet.ConnectedAccount(ctx)
		},
	)
	require.NoError(t, err)
	return services, mockLedger, mockWallet
}

func expectFinalized(mockLedger *mocks.LedgerClient, txID types.TransactionID) {
	mockLedger.On("WaitForFinalization", mock.Anything, txID, mock.Anything).Return(&ledger.FinalizationResult{
		TxID:   txID,
		Status: ledger.FinalizationFinalized,
	}, nil).Once()
}

func TestStakeBuildsHookedTokenTransfer(t *testing.T) {
	services, mockLedger, mockWallet := newTestServices(t)

	var signed *wallet.SignRequest
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		signed = args.Get(1).(*wallet.SignRequest)
	}).Return(types.TransactionID("tx-stake"), nil).Once()
	expectFinalized(mockLedger, "tx-stake")

	outcome, err := services.Stake(context.Background(), 100)
	require.Nil(t, err)
	assert.Equal(t, types.TransactionID("tx-stake"), outcome.FinalTxID)

	require.NotNil(t, signed)
	// The deposit is a token transfer whose receive hook lands in the
	// staking contract's stake entrypoint.
	assert.Equal(t, testTokenAddress, signed.Target)
	assert.Equal(t, "stable_token.transfer", signed.ReceiveName)
	assert.Equal(t, uint64(7000), signed.EnergyLimit)
	assert.Contains(t, string(signed.Parameter), "liquid_staking.stake")
}

func TestStakeRejectsZeroAmount(t *testing.T) {
	services, _, _ := newTestServices(t)

	_, err := services.Stake(context.Background(), 0)
	require.NotNil(t, err)
	assert.Equal(t, types.ValidationError, err.ErrorCode)
}

func TestInitiateUnstakeTargetsStakingContract(t *testing.T) {
	services, mockLedger, mockWallet := newTestServices(t)

	var signed *wallet.SignRequest
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		signed = args.Get(1).(*wallet.SignRequest)
	}).Return(types.TransactionID("tx-unstake"), nil).Once()
	expectFinalized(mockLedger, "tx-unstake")

	_, err := services.InitiateUnstake(context.Background(), 40)
	require.Nil(t, err)

	require.NotNil(t, signed)
	assert.Equal(t, testStakingAddress, signed.Target)
	assert.Equal(t, "liquid_staking.unstake", signed.ReceiveName)
	assert.Equal(t, []byte{40, 0, 0, 0, 0, 0, 0, 0}, signed.Parameter)
}

func TestUnstakeTimeoutThenManualRefreshShowsEffect(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockWallet := new(mocks.WalletClient)
	mockLedger.On("GetEmbeddedSchema", mock.Anything, moduleRef(1)).Return(stakingSchemaBytes(), nil).Maybe()
	mockWallet.On("ConnectedAccount", mock.Anything).Return(testSender, nil).Maybe()

	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Return(types.TransactionID("tx-unstake"), nil).Once()
	mockLedger.On("WaitForFinalization", mock.Anything, types.TransactionID("tx-unstake"), mock.Anything).Return(
		nil, types.NewErrorWithMsg(http.StatusRequestTimeout, types.TimedOut, "finalization wait timed out"),
	).Once()

	// The node's read path already reflects the unstake by the time the
	// staker asks for a refresh.
	raw, encErr := schema.EncodeValue(stakeInfoType, schema.StructValue(
		schema.NamedValue{Name: "amount", Value: schema.U64Value(60)},
		schema.NamedValue{Name: "timestamp", Value: schema.U64Value(1700000000)},
		schema.NamedValue{Name: "unbonding", Value: schema.ListValue(schema.StructValue(
			schema.NamedValue{Name: "amount", Value: schema.U64Value(40)},
			schema.NamedValue{Name: "unlock_time", Value: schema.U64Value(1700001000)},
		))},
		schema.NamedValue{Name: "slashed", Value: schema.BoolValue(false)},
		schema.NamedValue{Name: "pending_rewards", Value: schema.U64Value(0)},
	))
	require.NoError(t, encErr)
	mockLedger.On("InvokeContract", mock.Anything, mock.MatchedBy(func(req *ledger.InvokeContractRequest) bool {
		return req.ReceiveName == "liquid_staking.getStakeInfo"
	})).Return(&ledger.InvokeContractResponse{
		Success:     true,
		ReturnValue: raw,
	}, nil).Once()

	cfg := testConfig()
	codec := schema.NewCodec(mockLedger)
	contractInvoker := invoker.NewContractInvoker(mockLedger, 10000)
	txOrchestrator := orchestrator.New(mockLedger, mockWallet, &cfg.Transaction, time.Second)
	stateStore := store.New(codec, contractInvoker, cfg.Contracts.StakingModule, types.StakingContractName)
	services, err := New(
		context.Background(), cfg, codec, contractInvoker, txOrchestrator, stateStore,
		func(ctx context.Context) (types.AccountAddress, *types.Error) {
			return mockWallet.ConnectedAccount(ctx)
		},
	)
	require.NoError(t, err)

	_, opErr := services.InitiateUnstake(context.Background(), 40)
	require.NotNil(t, opErr)
	require.Equal(t, types.TimedOut, opErr.ErrorCode)

	// The abandoned wait did not retract the transaction: a manual
	// refresh observes the effect already applied, so a timed out
	// operation must never be treated as failed.
	snapshot, readErr := services.StakerPosition(context.Background(), testSender)
	require.Nil(t, readErr)
	assert.Equal(t, uint64(60), snapshot.Position.Amount)
	require.Len(t, snapshot.Position.Unbonding, 1)
	assert.Equal(t, uint64(40), snapshot.Position.Unbonding[0].Amount)
	assert.False(t, snapshot.Stale)
}

func TestFundRewardsExecutesTwoSteps(t *testing.T) {
	services, mockLedger, mockWallet := newTestServices(t)

	var receiveNames []string
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		receiveNames = append(receiveNames, args.Get(1).(*wallet.SignRequest).ReceiveName)
	}).Return(types.TransactionID("tx-1"), nil).Once()
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		receiveNames = append(receiveNames, args.Get(1).(*wallet.SignRequest).ReceiveName)
	}).Return(types.TransactionID("tx-2"), nil).Once()
	expectFinalized(mockLedger, "tx-1")
	expectFinalized(mockLedger, "tx-2")

	outcome, err := services.FundRewards(context.Background(), 500)
	require.Nil(t, err)

	require.Len(t, outcome.Steps, 2)
	assert.Equal(t, []string{"stable_token.transfer", "liquid_staking.fundRewards"}, receiveNames)
}

func TestFundRewardsSecondStepFailureIsPartial(t *testing.T) {
	services, mockLedger, mockWallet := newTestServices(t)

	code := int32(-6)
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Return(types.TransactionID("tx-1"), nil).Once()
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Return(types.TransactionID("tx-2"), nil).Once()
	expectFinalized(mockLedger, "tx-1")
	mockLedger.On("WaitForFinalization", mock.Anything, types.TransactionID("tx-2"), mock.Anything).Return(&ledger.FinalizationResult{
		TxID:       "tx-2",
		Status:     ledger.FinalizationRejected,
		RejectCode: &code,
	}, nil).Once()

	_, err := services.FundRewards(context.Background(), 500)
	require.NotNil(t, err)

	partial, ok := types.AsPartialFailure(err)
	require.True(t, ok)
	assert.Equal(t, 1, partial.FailedStepIndex)
	assert.Equal(t, []types.TransactionID{"tx-1"}, partial.FinalizedTxIDs)
}

func TestSlashEncodesAccountParameter(t *testing.T) {
	services, mockLedger, mockWallet := newTestServices(t)

	target := types.AccountAddress{0xbb}
	var signed *wallet.SignRequest
	mockWallet.On("SignAndSend", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		signed = args.Get(1).(*wallet.SignRequest)
	}).Return(types.TransactionID("tx-slash"), nil).Once()
	expectFinalized(mockLedger, "tx-slash")

	_, err := services.Slash(context.Background(), target)
	require.Nil(t, err)

	require.NotNil(t, signed)
	assert.Equal(t, "liquid_staking.slash", signed.ReceiveName)
	assert.Equal(t, target[:], signed.Parameter)
	assert.Equal(t, uint64(4000), signed.EnergyLimit)
}

func TestUserNonceReadsContractDirectly(t *testing.T) {
	services, mockLedger, _ := newTestServices(t)

	nonce, encErr := schema.EncodeValue(u64Type, schema.U64Value(41))
	require.NoError(t, encErr)
	mockLedger.On("InvokeContract", mock.Anything, mock.MatchedBy(func(req *ledger.InvokeContractRequest) bool {
		return req.ReceiveName == "liquid_staking.getUserNonce"
	})).Return(&ledger.InvokeContractResponse{
		Success:     true,
		ReturnValue: nonce,
	}, nil).Twice()

	got, err := services.UserNonce(context.Background(), testSender)
	require.Nil(t, err)
	assert.Equal(t, uint64(41), got)

	// No caching between reads.
	got, err = services.UserNonce(context.Background(), testSender)
	require.Nil(t, err)
	assert.Equal(t, uint64(41), got)
	mockLedger.AssertNumberOfCalls(t, "InvokeContract", 2)
}
