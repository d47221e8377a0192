// Package mocks provides hand-maintained testify mocks of the client
// interfaces used across package tests.
package mocks

import (
	"context"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/clients/wallet"
	"github.com/eurostake/staking-sync-service/internal/types"
)

type LedgerClient struct {
	mock.Mock
}

func (m *LedgerClient) GetBaseURL() string {
	return "mock-ledger"
}

func (m *LedgerClient) GetDefaultRequestTimeout() int {
	return 1000
}

func (m *LedgerClient) GetHttpClient() *http.Client {
	return &http.Client{}
}

func (m *LedgerClient) InvokeContract(ctx context.Context, req *ledger.InvokeContractRequest) (*ledger.InvokeContractResponse, *types.Error) {
	args := m.Called(ctx, req)
	if args.Get(1) != nil {
		return nil, args.Get(1).(*types.Error)
	}
	return args.Get(0).(*ledger.InvokeContractResponse), nil
}

func (m *LedgerClient) GetEmbeddedSchema(ctx context.Context, moduleRef types.ModuleReference) ([]byte, *types.Error) {
	args := m.Called(ctx, moduleRef)
	if args.Get(1) != nil {
		return nil, args.Get(1).(*types.Error)
	}
	return args.Get(0).([]byte), nil
}

func (m *LedgerClient) WaitForFinalization(ctx context.Context, txID types.TransactionID, timeout time.Duration) (*ledger.FinalizationResult, *types.Error) {
	args := m.Called(ctx, txID, timeout)
	if args.Get(1) != nil {
		return nil, args.Get(1).(*types.Error)
	}
	return args.Get(0).(*ledger.FinalizationResult), nil
}

type WalletClient struct {
	mock.Mock
}

func (m *WalletClient) GetBaseURL() string {
	return "mock-wallet"
}

func (m *WalletClient) GetDefaultRequestTimeout() int {
	return 1000
}

func (m *WalletClient) GetHttpClient() *http.Client {
	return &http.Client{}
}

func (m *WalletClient) ConnectedAccount(ctx context.Context) (types.AccountAddress, *types.Error) {
	args := m.Called(ctx)
	if args.Get(1) != nil {
		return types.AccountAddress{}, args.Get(1).(*types.Error)
	}
	return args.Get(0).(types.AccountAddress), nil
}

func (m *WalletClient) SignAndSend(ctx context.Context, req *wallet.SignRequest) (types.TransactionID, *types.Error) {
	args := m.Called(ctx, req)
	if args.Get(1) != nil {
		return "", args.Get(1).(*types.Error)
	}
	return args.Get(0).(types.TransactionID), nil
}
