package handlers

import (
	"net/http"

	"github.com/anonto42/gatherly/backend/internal/coordinator"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles the caller's notification inbox
type NotificationHandler struct {
	coord *coordinator.Coordinator
}

func NewNotificationHandler(coord *coordinator.Coordinator) *NotificationHandler {
	return &NotificationHandler{coord: coord}
}

func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.ListNotifications)
	g.DELETE("/notifications/:id", h.DismissNotification)
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	items, err := h.coord.ListNotifications(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) DismissNotification(c echo.Context) error {
	if err := h.coord.DismissNotification(c.Request().Context(), getUserIDFromContext(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
