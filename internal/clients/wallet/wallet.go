package wallet

import (
	"context"
	"encoding/hex"
	"net/http"

	baseclient "github.com/eurostake/staking-sync-service/internal/clients/base"
	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/types"
)

type WalletClient struct {
	config     *config.WalletConfig
	httpClient *http.Client
}

func NewWalletClient(cfg *config.WalletConfig) *WalletClient {
	httpClient := &http.Client{}
	return &WalletClient{
		cfg,
		httpClient,
	}
}

func (c *WalletClient) GetBaseURL() string {
	return c.config.Endpoint
}

func (c *WalletClient) GetDefaultRequestTimeout() int {
	return c.config.Timeout
}

func (c *WalletClient) GetHttpClient() *http.Client {
	return c.httpClient
}

type connectedAccountResponsePublic struct {
	Account string `json:"account"`
}

func (c *WalletClient) ConnectedAccount(ctx context.Context) (types.AccountAddress, *types.Error) {
	opts := &baseclient.BaseClientOptions{
		Path: "/v1/account",
	}
	resp, err := baseclient.SendRequest[any, connectedAccountResponsePublic](
		ctx, c, http.MethodGet, opts, nil,
	)
	if err != nil {
		return types.AccountAddress{}, err
	}

	account, parseErr := types.AccountAddressFromHex(resp.Account)
	if parseErr != nil {
		return types.AccountAddress{}, types.NewInternalServiceError(parseErr)
	}
	return account, nil
}

type signAndSendRequestPublic struct {
	Sender           string `json:"sender"`
	ContractIndex    uint64 `json:"contract_index"`
	ContractSubindex uint64 `json:"contract_subindex"`
	ReceiveName      string `json:"receive_name"`
	Amount           uint64 `json:"amount"`
	Parameter        string `json:"parameter,omitempty"`
	EnergyLimit      uint64 `json:"energy_limit"`
}

type signAndSendResponsePublic struct {
	TxHash string `json:"tx_hash"`
}

func (c *WalletClient) SignAndSend(ctx context.Context, req *SignRequest) (types.TransactionID, *types.Error) {
	payload := &signAndSendRequestPublic{
		Sender:           req.Sender.Hex(),
		ContractIndex:    req.Target.Index,
		ContractSubindex: req.Target.Subindex,
		ReceiveName:      req.ReceiveName,
		Amount:           req.Amount,
		EnergyLimit:      req.EnergyLimit,
	}
	if len(req.Parameter) > 0 {
		payload.Parameter = hex.EncodeToString(req.Parameter)
	}

	opts := &baseclient.BaseClientOptions{
		Path: "/v1/sign-and-send",
	}
	resp, err := baseclient.SendRequest[signAndSendRequestPublic, signAndSendResponsePublic](
		ctx, c, http.MethodPost, opts, payload,
	)
	if err != nil {
		// The bridge answers 403 when the user declines to sign.
		if err.StatusCode == http.StatusForbidden {
			return "", types.NewErrorWithMsg(
				http.StatusForbidden, types.UserRejected,
				"signing declined by the wallet user",
			)
		}
		return "", err
	}
	return types.TransactionID(resp.TxHash), nil
}
