package handlers

import (
	"context"
	"net/http"

	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/services"
	"github.com/eurostake/staking-sync-service/internal/types"
)

type Handler struct {
	config   *config.Config
	services *services.Services
}

type PublicResponse[T any] struct {
	Data T `json:"data"`
	// Stale marks data served from a retained older snapshot after a
	// failed refresh.
	Stale bool `json:"stale,omitempty"`
}

type Result struct {
	Data   interface{}
	Status int
}

// NewResult returns a successful result, with default status code 200
func NewResult[T any](data T) *Result {
	res := &PublicResponse[T]{Data: data}
	return &Result{Data: res, Status: http.StatusOK}
}

func NewResultWithStaleness[T any](data T, stale bool) *Result {
	res := &PublicResponse[T]{Data: data, Stale: stale}
	return &Result{Data: res, Status: http.StatusOK}
}

func New(
	ctx context.Context, cfg *config.Config, services *services.Services,
) (*Handler, error) {
	return &Handler{
		config:   cfg,
		services: services,
	}, nil
}

// parseAccountQuery extracts and validates the staker account query
// parameter.
func parseAccountQuery(request *http.Request) (types.AccountAddress, *types.Error) {
	raw := request.URL.Query().Get("staker_address")
	if raw == "" {
		return types.AccountAddress{}, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "staker_address is required",
		)
	}
	account, err := types.AccountAddressFromHex(raw)
	if err != nil {
		return types.AccountAddress{}, types.NewError(
			http.StatusBadRequest, types.ValidationError, err,
		)
	}
	return account, nil
}
