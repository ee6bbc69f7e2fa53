package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

func publishCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
