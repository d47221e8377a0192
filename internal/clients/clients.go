package clients

import (
	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/clients/wallet"
	"github.com/eurostake/staking-sync-service/internal/config"
)

type Clients struct {
	Ledger ledger.Client
	Wallet wallet.Client
}

func New(cfg *config.Config) *Clients {
	ledgerClient := ledger.NewLedgerClient(&cfg.Ledger)
	walletClient := wallet.NewWalletClient(&cfg.Wallet)

	return &Clients{
		Ledger: ledgerClient,
		Wallet: walletClient,
	}
}
