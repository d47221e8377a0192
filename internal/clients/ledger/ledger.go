package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	baseclient "github.com/eurostake/staking-sync-service/internal/clients/base"
	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/types"
)

type LedgerClient struct {
	config     *config.LedgerConfig
	httpClient *http.Client
}

func NewLedgerClient(cfg *config.LedgerConfig) *LedgerClient {
	httpClient := &http.Client{}
	return &LedgerClient{
		cfg,
		httpClient,
	}
}

// Necessary for the base client to know the endpoint and timeout
func (c *LedgerClient) GetBaseURL() string {
	return c.config.Endpoint
}

func (c *LedgerClient) GetDefaultRequestTimeout() int {
	return c.config.Timeout
}

func (c *LedgerClient) GetHttpClient() *http.Client {
	return c.httpClient
}

type invokeContractRequestPublic struct {
	ContractIndex    uint64 `json:"contract_index"`
	ContractSubindex uint64 `json:"contract_subindex"`
	ReceiveName      string `json:"receive_name"`
	Parameter        string `json:"parameter,omitempty"`
	Invoker          string `json:"invoker,omitempty"`
	EnergyLimit      uint64 `json:"energy_limit"`
}

type invokeContractResponsePublic struct {
	Outcome      string `json:"outcome"`
	ReturnValue  string `json:"return_value,omitempty"`
	EnergyUsed   uint64 `json:"energy_used"`
	RejectCode   *int32 `json:"reject_code,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
}

func (c *LedgerClient) InvokeContract(
	ctx context.Context, req *InvokeContractRequest,
) (*InvokeContractResponse, *types.Error) {
	payload := &invokeContractRequestPublic{
		ContractIndex:    req.Contract.Index,
		ContractSubindex: req.Contract.Subindex,
		ReceiveName:      req.ReceiveName,
		EnergyLimit:      req.EnergyLimit,
	}
	if len(req.Parameter) > 0 {
		payload.Parameter = hex.EncodeToString(req.Parameter)
	}
	if req.Invoker != nil {
		payload.Invoker = req.Invoker.Hex()
	}

	opts := &baseclient.BaseClientOptions{
		Path: "/v2/contract/invoke",
	}
	resp, err := baseclient.SendRequest[invokeContractRequestPublic, invokeContractResponsePublic](
		ctx, c, http.MethodPost, opts, payload,
	)
	if err != nil {
		return nil, err
	}

	out := &InvokeContractResponse{
		Success:      resp.Outcome == "success",
		EnergyUsed:   resp.EnergyUsed,
		RejectCode:   resp.RejectCode,
		RejectReason: resp.RejectReason,
	}
	if resp.ReturnValue != "" {
		raw, decodeErr := hex.DecodeString(resp.ReturnValue)
		if decodeErr != nil {
			return nil, types.NewErrorWithMsg(
				http.StatusInternalServerError, types.InternalServiceError,
				fmt.Sprintf("node returned malformed return value hex for %s", req.ReceiveName),
			)
		}
		out.ReturnValue = raw
	}
	return out, nil
}

type embeddedSchemaResponsePublic struct {
	Schema string `json:"schema"`
}

func (c *LedgerClient) GetEmbeddedSchema(
	ctx context.Context, moduleRef types.ModuleReference,
) ([]byte, *types.Error) {
	opts := &baseclient.BaseClientOptions{
		Path: fmt.Sprintf("/v2/module/%s/schema", moduleRef.Hex()),
	}
	resp, err := baseclient.SendRequest[any, embeddedSchemaResponsePublic](
		ctx, c, http.MethodGet, opts, nil,
	)
	if err != nil {
		return nil, err
	}

	raw, decodeErr := hex.DecodeString(resp.Schema)
	if decodeErr != nil {
		return nil, types.NewErrorWithMsg(
			http.StatusInternalServerError, types.InternalServiceError,
			fmt.Sprintf("node returned malformed schema hex for module %s", moduleRef.Hex()),
		)
	}
	return raw, nil
}

type transactionStatusResponsePublic struct {
	Status       string `json:"status"`
	BlockHash    string `json:"block_hash,omitempty"`
	EnergyUsed   uint64 `json:"energy_used"`
	RejectCode   *int32 `json:"reject_code,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
}

// WaitForFinalization polls the transaction status until it leaves the
// pending state or the timeout elapses. Abandoning the wait does not
// retract the submission.
func (c *LedgerClient) WaitForFinalization(
	ctx context.Context, txID types.TransactionID, timeout time.Duration,
) (*FinalizationResult, *types.Error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.config.FinalizationPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.getTransactionStatus(ctx, txID)
		if err != nil {
			// A transient poll failure is not an outcome; keep polling
			// until the bound elapses.
			log.Ctx(ctx).Warn().Err(err).
				Str("txId", txID.String()).
				Msg("transaction status poll failed, retrying")
		} else if status.Status != string(FinalizationPending) {
			return &FinalizationResult{
				TxID:         txID,
				Status:       FinalizationStatus(status.Status),
				BlockHash:    status.BlockHash,
				EnergyUsed:   status.EnergyUsed,
				RejectCode:   status.RejectCode,
				RejectReason: status.RejectReason,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, types.NewErrorWithMsg(
				http.StatusRequestTimeout, types.TimedOut,
				fmt.Sprintf("finalization wait for %s canceled; outcome unknown", txID),
			)
		case <-deadline.C:
			return nil, types.NewErrorWithMsg(
				http.StatusRequestTimeout, types.TimedOut,
				fmt.Sprintf("finalization wait for %s exceeded %s; outcome unknown", txID, timeout),
			)
		case <-ticker.C:
		}
	}
}

func (c *LedgerClient) getTransactionStatus(
	ctx context.Context, txID types.TransactionID,
) (*transactionStatusResponsePublic, *types.Error) {
	opts := &baseclient.BaseClientOptions{
		Path: fmt.Sprintf("/v2/transaction/%s/status", txID),
	}
	return baseclient.SendRequest[any, transactionStatusResponsePublic](
		ctx, c, http.MethodGet, opts, nil,
	)
}
