package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hfenton/property_search/internal/invite"
	"github.com/hfenton/property_search/internal/logging"
)

// InviteHandler creates invitation tokens. The admin-only restriction lives
// in the route table's role gate, not here.
type InviteHandler struct {
	Registry *invite.Registry
}

func (h *InviteHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "invite_create")

	token, err := h.Registry.Create(ctx)
	if err != nil {
		l.Error("invite_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create invitation token")
	}

	l.Info("invite_created")
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
	})
}
