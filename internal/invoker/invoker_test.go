package invoker

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/testutil/mocks"
	"github.com/eurostake/staking-sync-service/internal/types"
)

var testContract = types.ContractAddress{Index: 42}

func int32Ptr(v int32) *int32 {
	return &v
}

func TestInvokeReturnsValueAndEnergy(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("InvokeContract", mock.Anything, mock.MatchedBy(func(req *ledger.InvokeContractRequest) bool {
		return req.ReceiveName == "liquid_staking.view" && req.EnergyLimit == 10000
	})).Return(&ledger.InvokeContractResponse{
		Success:     true,
		ReturnValue: []byte{1, 2, 3},
		EnergyUsed:  777,
	}, nil)

	inv := NewContractInvoker(mockLedger, 10000)
	result, err := inv.Invoke(context.Background(), testContract, ReceiveName("liquid_staking", "view"), nil, nil)

	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3}, result.ReturnValue)
	assert.Equal(t, uint64(777), result.EnergyUsed)
	mockLedger.AssertExpectations(t)
}

func TestInvokeMapsStructuredRejectCode(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("InvokeContract", mock.Anything, mock.Anything).Return(&ledger.InvokeContractResponse{
		Success:      false,
		RejectCode:   int32Ptr(-15),
		RejectReason: "some unrelated text",
	}, nil)

	inv := NewContractInvoker(mockLedger, 10000)
	_, err := inv.Invoke(context.Background(), testContract, "liquid_staking.stake", []byte{1}, nil)

	require.NotNil(t, err)
	assert.Equal(t, types.InvokeRevert, err.ErrorCode)

	revertErr, ok := types.AsRevertError(err)
	require.True(t, ok)
	assert.Equal(t, types.ReasonPaused, revertErr.Reason)
}

func TestInvokeFallsBackToRevertText(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("InvokeContract", mock.Anything, mock.Anything).Return(&ledger.InvokeContractResponse{
		Success:      false,
		RejectReason: "runtime failure: insufficient funds",
	}, nil)

	inv := NewContractInvoker(mockLedger, 10000)
	_, err := inv.Invoke(context.Background(), testContract, "stable_token.transfer", []byte{1}, nil)

	require.NotNil(t, err)
	revertErr, ok := types.AsRevertError(err)
	require.True(t, ok)
	assert.Equal(t, types.ReasonInsufficientFunds, revertErr.Reason)
}

func TestInvokeUnknownRejectCodeFallsBackToText(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("InvokeContract", mock.Anything, mock.Anything).Return(&ledger.InvokeContractResponse{
		Success:      false,
		RejectCode:   int32Ptr(-12345),
		RejectReason: "contract is paused",
	}, nil)

	inv := NewContractInvoker(mockLedger, 10000)
	_, err := inv.Invoke(context.Background(), testContract, "liquid_staking.stake", []byte{1}, nil)

	require.NotNil(t, err)
	revertErr, ok := types.AsRevertError(err)
	require.True(t, ok)
	assert.Equal(t, types.ReasonPaused, revertErr.Reason)
}

func TestInvokePassesThroughTransportError(t *testing.T) {
	mockLedger := new(mocks.LedgerClient)
	mockLedger.On("InvokeContract", mock.Anything, mock.Anything).Return(
		nil, types.NewErrorWithMsg(http.StatusServiceUnavailable, types.NetworkError, "node unreachable"),
	)

	inv := NewContractInvoker(mockLedger, 10000)
	_, err := inv.Invoke(context.Background(), testContract, "liquid_staking.view", nil, nil)

	require.NotNil(t, err)
	assert.Equal(t, types.NetworkError, err.ErrorCode)
}

func TestMapRevertPrecedence(t *testing.T) {
	// Structured code wins over conflicting text.
	assert.Equal(t, types.ReasonOnlyAdmin, MapRevert(int32Ptr(-6), "insufficient funds"))
	// Text is only consulted without a usable code.
	assert.Equal(t, types.ReasonNoStakeFound, MapRevert(nil, "no stake found"))
	assert.Equal(t, types.ReasonUnknown, MapRevert(nil, "???"))
}
