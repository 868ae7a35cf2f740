package handlers

import (
	"net/http"

	"github.com/anonto42/gatherly/backend/internal/coordinator"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FriendshipHandler handles friend requests and the friend list
type FriendshipHandler struct {
	coord *coordinator.Coordinator
	users repositories.UserRepository
}

// NewFriendshipHandler creates a new FriendshipHandler. users may be nil, in
// which case ListFriends returns ids only.
func NewFriendshipHandler(coord *coordinator.Coordinator, users repositories.UserRepository) *FriendshipHandler {
	return &FriendshipHandler{coord: coord, users: users}
}

// RegisterFriendshipRoutes registers friendship routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/requests", h.SendFriendRequest)
	g.GET("/friends/requests", h.ListFriendRequests)
	g.PUT("/friends/requests/:id", h.ResolveFriendRequest)
	g.GET("/friends", h.ListFriends)
	g.DELETE("/friends/:id", h.RemoveFriend)
}

func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	var req models.SendFriendRequestInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := h.coord.SendFriendRequest(c.Request().Context(), getUserIDFromContext(c), req.RecipientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *FriendshipHandler) ListFriendRequests(c echo.Context) error {
	requests, err := h.coord.ListFriendRequests(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, requests)
}

// ResolveFriendRequest accepts or rejects a pending request. Accepting
// responds with the new friendship; rejecting responds with 204.
func (h *FriendshipHandler) ResolveFriendRequest(c echo.Context) error {
	var req models.ResolveFriendRequestInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	edge, err := h.coord.ResolveFriendRequest(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), req.Outcome)
	if err != nil {
		return err
	}
	if edge == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, edge)
}

// ListFriends returns the caller's friends. ?expand=users returns profiles
// instead of ids.
func (h *FriendshipHandler) ListFriends(c echo.Context) error {
	ctx := c.Request().Context()
	ids, err := h.coord.ListFriends(ctx, getUserIDFromContext(c))
	if err != nil {
		return err
	}
	if c.QueryParam("expand") != "users" || h.users == nil {
		return c.JSON(http.StatusOK, echo.Map{"friend_ids": ids})
	}

	friends := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		u, err := h.users.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		friends = append(friends, u.ToCompact())
	}
	return c.JSON(http.StatusOK, echo.Map{"friends": friends})
}

func (h *FriendshipHandler) RemoveFriend(c echo.Context) error {
	friendID, err := parseUserID(c, "id")
	if err != nil {
		return err
	}
	if err := h.coord.RemoveFriend(c.Request().Context(), getUserIDFromContext(c), friendID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
