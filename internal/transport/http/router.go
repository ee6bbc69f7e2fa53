package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/handlers"
	mwauth "github.com/hfenton/property_search/internal/middleware/auth"
)

type Deps struct {
	DB              *gorm.DB
	AuthChain       *mwauth.Chain
	AuthHandler     *handlers.AuthHandler
	InviteHandler   *handlers.InviteHandler
	PropertyHandler *handlers.PropertyHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = handlers.NewRequestValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authGroup := e.Group("/auth")
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/refresh-token", d.AuthHandler.RefreshToken)
	authGroup.GET("/google", d.AuthHandler.GoogleLogin)
	authGroup.GET("/google/callback", d.AuthHandler.GoogleCallback)
	authGroup.GET("/logout", d.AuthHandler.LogOut,
		d.AuthChain.Authenticate, mwauth.RequiresRoleOf("admin", "user"))

	e.POST("/invitations", d.InviteHandler.Create,
		d.AuthChain.Authenticate, mwauth.RequiresRoleOf("admin"))

	e.GET("/search", d.SearchHandler.Search)

	properties := e.Group("/properties")
	properties.GET("", d.PropertyHandler.GetProperties)
	properties.GET("/:id", d.PropertyHandler.GetProperty)

	admin := properties.Group("", d.AuthChain.Authenticate, mwauth.RequiresRoleOf("admin"))
	admin.POST("", d.PropertyHandler.CreateProperty)
	admin.PATCH("/:id", d.PropertyHandler.PatchProperty)
	admin.DELETE("/:id", d.PropertyHandler.DeleteProperty)
}
