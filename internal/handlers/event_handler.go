package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/coordinator"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// EventHandler handles HTTP requests related to events
type EventHandler struct {
	coord *coordinator.Coordinator
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(coord *coordinator.Coordinator) *EventHandler {
	return &EventHandler{coord: coord}
}

// RegisterEventRoutes registers event routes
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events", h.CreateEvent)
	g.GET("/events", h.ListEvents)
	g.GET("/events/:id", h.GetEvent)
	g.DELETE("/events/:id", h.DeleteEvent)
	g.POST("/events/:id/signup", h.SignUp)
	g.DELETE("/events/:id/signup", h.Withdraw)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req models.EventSpec
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	ev, err := h.coord.CreateEvent(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ev)
}

// ListEvents lists every event. ?owner= and ?member= take a user id or "me".
func (h *EventHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	actor := getUserIDFromContext(c)

	var (
		events []models.Event
		err    error
	)
	switch {
	case c.QueryParam("owner") != "":
		var owner uint
		if owner, err = resolveUserParam(c.QueryParam("owner"), actor); err != nil {
			return err
		}
		events, err = h.coord.ListEventsByOwner(ctx, actor, owner)
	case c.QueryParam("member") != "":
		var member uint
		if member, err = resolveUserParam(c.QueryParam("member"), actor); err != nil {
			return err
		}
		events, err = h.coord.ListEventsByMember(ctx, actor, member)
	default:
		events, err = h.coord.ListEvents(ctx, actor)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	ev, err := h.coord.GetEvent(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) SignUp(c echo.Context) error {
	ev, err := h.coord.SignUp(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) Withdraw(c echo.Context) error {
	ev, err := h.coord.Withdraw(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent deletes an event owned by the caller and returns its final state
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	ev, err := h.coord.DeleteEvent(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

func resolveUserParam(v string, actor uint) (uint, error) {
	if v == "me" {
		return actor, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid user id %q", v)
	}
	return uint(id), nil
}
