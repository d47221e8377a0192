package handlers

import (
	"net/http"
	"time"

	"github.com/eurostake/staking-sync-service/internal/store"
	"github.com/eurostake/staking-sync-service/internal/types"
)

type unbondingEntryPublic struct {
	Amount     uint64 `json:"amount"`
	UnlockTime int64  `json:"unlock_time"`
	// Eligible is a preview against local clock time; the contract
	// decides release eligibility authoritatively.
	Eligible bool `json:"eligible"`
}

type stakerPositionPublic struct {
	Amount         uint64                 `json:"amount"`
	PendingRewards uint64                 `json:"pending_rewards"`
	Slashed        bool                   `json:"slashed"`
	LastUpdate     int64                  `json:"last_update"`
	Unbonding      []unbondingEntryPublic `json:"unbonding"`
	RefreshedAt    int64                  `json:"refreshed_at"`
}

type earnedRewardsPublic struct {
	Amount      uint64 `json:"amount"`
	RefreshedAt int64  `json:"refreshed_at"`
}

type userNoncePublic struct {
	Nonce uint64 `json:"nonce"`
}

func (h *Handler) GetStakerPosition(request *http.Request) (*Result, *types.Error) {
	account, err := parseAccountQuery(request)
	if err != nil {
		return nil, err
	}

	snapshot, err := h.services.StakerPosition(request.Context(), account)
	if err != nil {
		return nil, err
	}

	return NewResultWithStaleness(toStakerPositionPublic(snapshot), snapshot.Stale), nil
}

func (h *Handler) GetEarnedRewards(request *http.Request) (*Result, *types.Error) {
	account, err := parseAccountQuery(request)
	if err != nil {
		return nil, err
	}

	snapshot, err := h.services.EarnedRewards(request.Context(), account)
	if err != nil {
		return nil, err
	}

	public := earnedRewardsPublic{
		Amount:      snapshot.Amount,
		RefreshedAt: snapshot.RefreshedAt.Unix(),
	}
	return NewResultWithStaleness(public, snapshot.Stale), nil
}

func (h *Handler) GetUserNonce(request *http.Request) (*Result, *types.Error) {
	account, err := parseAccountQuery(request)
	if err != nil {
		return nil, err
	}

	nonce, err := h.services.UserNonce(request.Context(), account)
	if err != nil {
		return nil, err
	}

	return NewResult(userNoncePublic{Nonce: nonce}), nil
}

func toStakerPositionPublic(snapshot *store.PositionSnapshot) stakerPositionPublic {
	now := time.Now().Unix()
	unbonding := make([]unbondingEntryPublic, 0, len(snapshot.Position.Unbonding))
	for _, entry := range snapshot.Position.Unbonding {
		unbonding = append(unbonding, unbondingEntryPublic{
			Amount:     entry.Amount,
			UnlockTime: entry.UnlockTime,
			Eligible:   entry.Eligible(now),
		})
	}
	return stakerPositionPublic{
		Amount:         snapshot.Position.Amount,
		PendingRewards: snapshot.Position.PendingRewards,
		Slashed:        snapshot.Position.Slashed,
		LastUpdate:     snapshot.Position.LastUpdate,
		Unbonding:      unbonding,
		RefreshedAt:    snapshot.RefreshedAt.Unix(),
	}
}
