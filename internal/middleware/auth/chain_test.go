package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/models"
	"github.com/hfenton/property_search/internal/session"
	"github.com/hfenton/property_search/internal/tokens"
)

type chainEnv struct {
	e     *echo.Echo
	chain *Chain
	db    *gorm.DB
}

func newChainEnv(t *testing.T) *chainEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	return &chainEnv{
		e:  echo.New(),
		db: db,
		chain: &Chain{
			DB: db,
			Tokens: &tokens.Service{
				AccessSecret:  []byte("test-access-secret"),
				RefreshSecret: []byte("test-refresh-secret"),
			},
			Sessions: &session.Store{DB: db, Secret: []byte("test-session-secret")},
		},
	}
}

func (env *chainEnv) do(t *testing.T, mutate func(*http.Request)) (Identity, *httptest.ResponseRecorder, error) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	var got Identity
	handler := env.chain.Authenticate(func(c echo.Context) error {
		got, _ = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	return got, rec, err
}

func (env *chainEnv) seedSession(t *testing.T, role string) (string, *models.User) {
	t.Helper()

	user := models.User{
		Username:     "sess_user_" + role,
		Email:        role + "@example.com",
		Name:         "Session User",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, env.db.Create(&user).Error)

	sid, err := env.chain.Sessions.Create(t.Context(), user.ID)
	require.NoError(t, err)
	return env.chain.Sessions.Sign(sid), &user
}

func TestChain_BearerStage_ValidToken(t *testing.T) {
	env := newChainEnv(t)

	token, err := env.chain.Tokens.MintAccess(tokens.Identity{ID: 5, Role: "admin"})
	require.NoError(t, err)

	got, rec, err := env.do(t, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Identity{Scheme: SchemeBearer, ID: 5, Role: "admin"}, got)
	assert.Equal(t, "bearer", rec.Header().Get(HeaderAuthScheme))
}

func TestChain_BearerStage_MissingHeader(t *testing.T) {
	env := newChainEnv(t)

	_, _, err := env.do(t, nil)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, "Access token missing", he.Message)
}

func TestChain_BearerStage_InvalidToken(t *testing.T) {
	env := newChainEnv(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "garbage"},
		{name: "expired", token: expiredAccessToken(t, env.chain.Tokens.AccessSecret)},
		{name: "wrong secret", token: mintedWith(t, []byte("other-secret"))},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.do(t, func(req *http.Request) {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			})
			require.Error(t, err)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
			assert.Equal(t, "Invalid or expired access token", he.Message)
		})
	}
}

func TestChain_SessionStage_ValidSession(t *testing.T) {
	env := newChainEnv(t)
	cookieValue, user := env.seedSession(t, "user")

	got, rec, err := env.do(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookieValue})
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Identity{Scheme: SchemeSession, ID: user.ID, Role: "user"}, got)
	assert.Equal(t, "session", rec.Header().Get(HeaderAuthScheme))
}

func TestChain_SessionWinsOverBearer(t *testing.T) {
	env := newChainEnv(t)
	cookieValue, user := env.seedSession(t, "admin")

	// A logged-in browser user is never rejected for carrying a stale
	// bearer token.
	got, _, err := env.do(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookieValue})
		req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	})
	require.NoError(t, err)
	assert.Equal(t, SchemeSession, got.Scheme)
	assert.Equal(t, user.ID, got.ID)
}

func TestChain_TamperedSessionFallsThroughToBearer(t *testing.T) {
	env := newChainEnv(t)

	token, err := env.chain.Tokens.MintAccess(tokens.Identity{ID: 3, Role: "user"})
	require.NoError(t, err)

	got, _, err := env.do(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged.deadbeef"})
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	require.NoError(t, err)
	assert.Equal(t, SchemeBearer, got.Scheme)
}

func TestChain_TamperedSessionWithoutBearerRejected(t *testing.T) {
	env := newChainEnv(t)

	_, _, err := env.do(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged.deadbeef"})
	})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func expiredAccessToken(t *testing.T, secret []byte) string {
	t.Helper()

	claims := tokens.Claims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func mintedWith(t *testing.T, secret []byte) string {
	t.Helper()

	svc := &tokens.Service{AccessSecret: secret, RefreshSecret: secret}
	token, err := svc.MintAccess(tokens.Identity{ID: 3, Role: "user"})
	require.NoError(t, err)
	return token
}
