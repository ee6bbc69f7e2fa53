package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/models"
	"github.com/hfenton/property_search/internal/session"
	"github.com/hfenton/property_search/internal/tokens"
)

// Chain authenticates a request against the session store first and the
// bearer token second. A valid session always wins: a browser login is
// never rejected for lacking a bearer token. Every failure branch
// short-circuits with 401.
type Chain struct {
	DB       *gorm.DB
	Tokens   *tokens.Service
	Sessions *session.Store
}

func (m *Chain) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if identity, ok := m.sessionIdentity(c); ok {
			SetIdentity(c, identity)
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token missing")
		}
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token missing")
		}

		identity, err := m.Tokens.VerifyAccess(tokenStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token")
		}

		SetIdentity(c, Identity{Scheme: SchemeBearer, ID: identity.ID, Role: identity.Role})
		return next(c)
	}
}

// sessionIdentity resolves the session cookie to an identity. The role
// comes from the user row, not from anything stored in the cookie, so role
// changes take effect on the next request.
func (m *Chain) sessionIdentity(c echo.Context) (Identity, bool) {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}

	sid, ok := m.Sessions.Verify(cookie.Value)
	if !ok {
		return Identity{}, false
	}

	ctx := c.Request().Context()
	record, err := m.Sessions.Get(ctx, sid)
	if err != nil {
		return Identity{}, false
	}

	var user models.User
	if err := m.DB.WithContext(ctx).First(&user, record.UserID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, false
		}
		// Session for a deleted user is dead weight.
		_ = m.Sessions.Destroy(ctx, sid)
		return Identity{}, false
	}

	return Identity{Scheme: SchemeSession, ID: user.ID, Role: user.Role}, true
}
