package handler

import (
	"net/http"

	"github.com/dtroode/pastry-storefront/internal/model"
)

// NotificationService exposes unread order notifications.
type NotificationService interface {
	List() []model.OrderNotification
	MarkRead()
}

// Notifications handles the notification bell endpoints.
type Notifications struct {
	notifications NotificationService
}

func NewNotifications(notifications NotificationService) *Notifications {
	return &Notifications{notifications: notifications}
}

func (h *Notifications) List(w http.ResponseWriter, _ *http.Request) {
	items := h.notifications.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        len(items),
	})
}

func (h *Notifications) MarkRead(w http.ResponseWriter, _ *http.Request) {
	h.notifications.MarkRead()
	w.WriteHeader(http.StatusNoContent)
}
