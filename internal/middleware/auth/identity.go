package auth

import "github.com/labstack/echo/v4"

// Scheme records which credential authenticated the request.
type Scheme string

const (
	SchemeSession Scheme = "session"
	SchemeBearer  Scheme = "bearer"
)

// HeaderAuthScheme is set on the response so downstream stages (and
// clients) can see which scheme won.
const HeaderAuthScheme = "X-Auth-Scheme"

const identityKey = "auth_identity"

// Identity is the request-scoped authenticated identity. It is produced
// exactly once by the Authenticate chain and never persisted.
type Identity struct {
	Scheme Scheme
	ID     uint
	Role   string
}

func SetIdentity(c echo.Context, identity Identity) {
	c.Set(identityKey, identity)
	c.Response().Header().Set(HeaderAuthScheme, string(identity.Scheme))
}

func IdentityFrom(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(identityKey).(Identity)
	return identity, ok
}
