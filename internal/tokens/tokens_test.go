package tokens

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return &Service{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func TestService_AccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	identity := Identity{ID: 42, Role: "admin"}

	token, err := svc.MintAccess(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestService_RefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	identity := Identity{ID: 7, Role: "user"}

	token, err := svc.MintRefresh(identity)
	require.NoError(t, err)

	got, err := svc.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestService_SecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	identity := Identity{ID: 1, Role: "user"}

	access, err := svc.MintAccess(identity)
	require.NoError(t, err)
	refresh, err := svc.MintRefresh(identity)
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Verify_FailsClosed(t *testing.T) {
	t.Parallel()

	svc := newTestService()

	expired := signWith(t, svc.AccessSecret, jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	misSigned := signWith(t, []byte("wrong-secret"), jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubject := signWith(t, svc.AccessSecret, jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "wrong secret", token: misSigned},
		{name: "non-numeric subject", token: badSubject},
		{name: "malformed", token: "not-a-jwt"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.VerifyAccess(tt.token)
			require.Error(t, err)
			// Every failure mode collapses into the same error.
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestService_Verify_RejectsUnexpectedAlg(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	token := signWith(t, svc.AccessSecret, jwt.SigningMethodHS512, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := svc.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_MintAccess_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	identity := Identity{ID: 99, Role: "user"}

	token, err := svc.MintAccess(identity)
	require.NoError(t, err)

	var claims Claims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return svc.AccessSecret, nil
	})
	require.NoError(t, err)

	assert.Equal(t, strconv.Itoa(99), claims.Subject)
	assert.Equal(t, "user", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func signWith(t *testing.T, secret []byte, method jwt.SigningMethod, claims Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}
