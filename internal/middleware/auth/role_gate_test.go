package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGate(t *testing.T, gate echo.MiddlewareFunc, identity *Identity) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if identity != nil {
		SetIdentity(c, *identity)
	}

	handler := gate(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestRequiresRoleOf_AllowsMatchingRole(t *testing.T) {
	t.Parallel()

	gate := RequiresRoleOf("admin", "user")

	rec, err := runGate(t, gate, &Identity{Scheme: SchemeBearer, ID: 1, Role: "user"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequiresRoleOf_RejectsWrongRole(t *testing.T) {
	t.Parallel()

	gate := RequiresRoleOf("admin")

	_, err := runGate(t, gate, &Identity{Scheme: SchemeBearer, ID: 1, Role: "user"})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Code)
	assert.Equal(t, "Unauthorized", he.Message)
}

func TestRequiresRoleOf_RejectsSessionIdentityWithWrongRole(t *testing.T) {
	t.Parallel()

	gate := RequiresRoleOf("admin")

	_, err := runGate(t, gate, &Identity{Scheme: SchemeSession, ID: 2, Role: "user"})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestRequiresRoleOf_RejectsMissingIdentity(t *testing.T) {
	t.Parallel()

	gate := RequiresRoleOf("admin", "user")

	// An unauthenticated request must never slip through the gate, even if
	// the authentication stage was somehow skipped.
	_, err := runGate(t, gate, nil)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
