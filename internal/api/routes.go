package api

import (
	"github.com/go-chi/chi"
)

func (a *Server) SetupRoutes(r *chi.Mux) {
	handlers := a.handlers
	r.Get("/healthcheck", registerHandler(handlers.HealthCheck))

	r.Get("/v1/staker/position", registerHandler(handlers.GetStakerPosition))
	r.Get("/v1/staker/rewards", registerHandler(handlers.GetEarnedRewards))
	r.Get("/v1/staker/nonce", registerHandler(handlers.GetUserNonce))
	r.Get("/v1/stats", registerHandler(handlers.GetProtocolStats))
}
