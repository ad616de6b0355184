// Package user реализует HTTP-обработчик WebSocket-соединений участников зала.
//
// Соединение участника предназначено для получения ретранслируемых уведомлений
// (start_enrollment, enrollment_completed); привилегированные операции на нем
// запрещены. Новое соединение того же участника вытесняет прежнее.
package user

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
	"github.com/santiagoe16/gym-access-broker/internal/lib/sl"
)

// Handler обрабатывает WebSocket-подключения участников.
type Handler struct {
	log        *slog.Logger
	dispatcher *broker.Dispatcher
	upgrader   websocket.Upgrader
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, dispatcher *broker.Dispatcher) *Handler {
	return &Handler{
		log:        log,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP godoc
// @Summary WebSocket участника
// @Description Канал уведомлений участника о ходе регистрации отпечатков.
// @Tags Fingerprint
// @Param user_id path string true "Идентификатор участника"
// @Success 101 "Switching Protocols"
// @Router /ws/user/{user_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ws.user"

	userID := chi.URLParam(r, "user_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	conn := h.dispatcher.NewUserSession(ws, userID)
	defer h.dispatcher.CloseUserSession(conn)
	go conn.WritePump()

	log.Info("member connected")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Info("member disconnected", sl.Err(err))
			return
		}
		h.dispatcher.HandleUserMessage(conn, raw)
	}
}
