package handlers

import (
	"net/http"

	"github.com/eurostake/staking-sync-service/internal/types"
)

type protocolStatsPublic struct {
	ActiveStakerCount uint64 `json:"active_staker_count"`
	TotalStaked       uint64 `json:"total_staked"`
	TotalRewardsPaid  uint64 `json:"total_rewards_paid"`
	RewardsPool       uint64 `json:"rewards_pool"`
	AprBps            uint64 `json:"apr_bps"`
	Paused            bool   `json:"paused"`
	RefreshedAt       int64  `json:"refreshed_at"`
}

func (h *Handler) GetProtocolStats(request *http.Request) (*Result, *types.Error) {
	snapshot, err := h.services.ProtocolStats(request.Context())
	if err != nil {
		return nil, err
	}

	public := protocolStatsPublic{
		ActiveStakerCount: snapshot.Stats.ActiveStakerCount,
		TotalStaked:       snapshot.Stats.TotalStaked,
		TotalRewardsPaid:  snapshot.Stats.TotalRewardsPaid,
		RewardsPool:       snapshot.Stats.RewardsPool,
		AprBps:            snapshot.Stats.Apr,
		Paused:            snapshot.Stats.Paused,
		RefreshedAt:       snapshot.RefreshedAt.Unix(),
	}
	return NewResultWithStaleness(public, snapshot.Stale), nil
}
