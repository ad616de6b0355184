// Package read реализует HTTP-обработчик чтения профиля участника зала.
//
// Обработчик доступен только аутентифицированному персоналу: зал берется
// из JWT-клеймов запроса, поэтому сотрудник видит только участников
// собственного зала.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/santiagoe16/gym-access-broker/internal/http/middlewarectx"
	"github.com/santiagoe16/gym-access-broker/internal/http/response"
	"github.com/santiagoe16/gym-access-broker/internal/lib/sl"
	"github.com/santiagoe16/gym-access-broker/internal/models"
	"github.com/santiagoe16/gym-access-broker/internal/services/directory"
)

// Service описывает интерфейс поиска участника.
type Service interface {
	FindMember(ctx context.Context, gymID, userID string) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы чтения профиля участника.
type Handler struct {
	log       *slog.Logger
	directory Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, directory Service) *Handler {
	return &Handler{
		log:       log,
		directory: directory,
	}
}

// ServeHTTP godoc
// @Summary Чтение профиля участника
// @Description Возвращает профиль активного участника зала сотрудника.
// @Tags Members
// @Produce  json
// @Param id path string true "Идентификатор участника"
// @Success 200 {object} map[string]any "Профиль участника"
// @Failure 401 {object} response.ErrorResponse "Не аутентифицирован"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /members/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	gymID, ok := r.Context().Value(middlewarectx.GymID).(int64)
	if !ok {
		log.Error("gym id missing from request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("missing or invalid authorization header"))
		return
	}

	memberID := chi.URLParam(r, "id")
	member, err := h.directory.FindMember(r.Context(), strconv.FormatInt(gymID, 10), memberID)
	if errors.Is(err, directory.ErrMemberNotFound) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("member not found"))
		return
	}
	if err != nil {
		log.Error("member lookup failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"id":        member.ID,
		"email":     member.Email,
		"full_name": member.FullName,
		"gym_id":    member.GymID,
	}))
}
