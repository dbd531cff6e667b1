package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/core-ledger/internal/auth"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/service"
	u "github.com/riteshkumar/core-ledger/internal/utils"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *slog.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/notifications", guarded(auth.OpListNotifications, h.logger, h.ListNotifications)).Methods(http.MethodGet)
	router.Handle("/notifications/read-all", guarded(auth.OpMarkNotifications, h.logger, h.MarkAllRead)).Methods(http.MethodPut)
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notificationService.ListNotifications(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list notifications")
		return
	}

	u.WriteJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notificationService.MarkAllRead(r.Context(), identity(r).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "mark notifications read")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.MarkReadResponse{
		Message: "Marked all as read",
		Updated: updated,
	})
}
