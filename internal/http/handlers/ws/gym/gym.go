// Package gym реализует HTTP-обработчик WebSocket-соединений устройств захвата.
//
// После апгрейда соединение получает протокольную сессию: входящие сообщения
// читаются последовательно и передаются автомату, исходящие пишутся отдельной
// горутиной через очередь соединения. Обрыв чтения или записи снимает
// соединение с учета в реестре.
package gym

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"

	"github.com/santiagoe16/gym-access-broker/internal/broker"
	"github.com/santiagoe16/gym-access-broker/internal/lib/sl"
)

// Handler обрабатывает WebSocket-подключения устройств захвата отпечатков.
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
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// подключаются устройства, а не браузеры: заголовок Origin не несет смысла
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP godoc
// @Summary WebSocket устройства захвата
// @Description Дуплексный канал протокола регистрации отпечатков для зала.
// @Tags Fingerprint
// @Param gym_id path string true "Идентификатор зала"
// @Success 101 "Switching Protocols"
// @Router /ws/gym/{gym_id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ws.gym"

	gymID := chi.URLParam(r, "gym_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("gym_id", gymID),
	)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	session := h.dispatcher.NewGymSession(ws, gymID)
	defer session.Close()
	go session.Conn().WritePump()

	log.Info("capture device connected")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Info("capture device disconnected", sl.Err(err))
			return
		}
		session.HandleRaw(r.Context(), raw)
	}
}
