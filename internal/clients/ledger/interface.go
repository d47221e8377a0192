package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// InvokeContractRequest describes one read-only contract invocation.
// ReceiveName is "<contract>.<entrypoint>". Parameter and Invoker are
// optional.
type InvokeContractRequest struct {
	Contract    types.ContractAddress
	ReceiveName string
	Parameter   []byte
	Invoker     *types.AccountAddress
	EnergyLimit uint64
}

// InvokeContractResponse is the node's invocation outcome. On failure
// RejectCode carries the structured reject code when the node provides
// one; RejectReason carries free revert text.
type InvokeContractResponse struct {
	Success      bool
	ReturnValue  []byte
	EnergyUsed   uint64
	RejectCode   *int32
	RejectReason string
}

// FinalizationStatus of a submitted transaction as reported by the
// node.
type FinalizationStatus string

const (
	FinalizationPending   FinalizationStatus = "pending"
	FinalizationFinalized FinalizationStatus = "finalized"
	FinalizationRejected  FinalizationStatus = "rejected"
)

// FinalizationResult is the terminal inclusion outcome of a
// transaction.
type FinalizationResult struct {
	TxID         types.TransactionID
	Status       FinalizationStatus
	BlockHash    string
	EnergyUsed   uint64
	RejectCode   *int32
	RejectReason string
}

// Client is the ledger node RPC surface this service consumes.
type Client interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() int
	GetHttpClient() *http.Client

	// InvokeContract runs a read-only invocation. It never mutates chain
	// state and requires no signature.
	InvokeContract(ctx context.Context, req *InvokeContractRequest) (*InvokeContractResponse, *types.Error)
	// GetEmbeddedSchema fetches the schema bytes embedded in a module.
	GetEmbeddedSchema(ctx context.Context, moduleRef types.ModuleReference) ([]byte, *types.Error)
	// WaitForFinalization blocks until the transaction reaches a
	// terminal inclusion status or the timeout elapses. On timeout it
	// returns a TIMED_OUT error; the transaction is not retracted and
	// may still finalize later.
	WaitForFinalization(ctx context.Context, txID types.TransactionID, timeout time.Duration) (*FinalizationResult, *types.Error)
}
