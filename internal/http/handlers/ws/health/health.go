// Package health отдает снимок состояния брокера соединений.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
)

// Handler отвечает на запросы состояния брокера.
type Handler struct {
	log      *slog.Logger
	registry *broker.Registry
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, registry *broker.Registry) *Handler {
	return &Handler{
		log:      log,
		registry: registry,
	}
}

// ServeHTTP godoc
// @Summary Состояние брокера соединений
// @Description Возвращает счетчики активных соединений и подписок по залам.
// @Tags Fingerprint
// @Produce  json
// @Success 200 {object} map[string]any "Снимок состояния"
// @Router /fingerprint/health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Snapshot()
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, map[string]any{
		"active_connections": snap.ActiveConnections,
		"connected_users":    snap.ConnectedUsers,
		"gym_subscriptions":  snap.GymSubscriptions,
		"status":             "healthy",
	})
}
