package wallet

import (
	"context"
	"net/http"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// SignRequest describes one contract update transaction to be signed
// and submitted by the wallet capability.
type SignRequest struct {
	Sender      types.AccountAddress
	Target      types.ContractAddress
	ReceiveName string
	// Amount of native currency attached to the update. Token amounts
	// travel inside the encoded parameter, so this is normally zero.
	Amount      uint64
	Parameter   []byte
	EnergyLimit uint64
}

// Client is the wallet capability holding the signing authority. The
// connected account identity is exposed; private keys never are.
type Client interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() int
	GetHttpClient() *http.Client

	// ConnectedAccount returns the identity of the wallet's connected
	// account.
	ConnectedAccount(ctx context.Context) (types.AccountAddress, *types.Error)
	// SignAndSend signs the transaction and submits it to the ledger,
	// returning the transaction id. Declining to sign yields a
	// USER_REJECTED error.
	SignAndSend(ctx context.Context, req *SignRequest) (types.TransactionID, *types.Error)
}
