package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// signing method, malformed token, expired token. Callers get no hint of
// which one it was.
var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	ID   uint
	Role string
}

// Service mints and verifies access and refresh tokens. The two token
// classes are signed with distinct secrets so a leaked access secret cannot
// forge refresh tokens and vice versa.
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
}

func (s *Service) MintAccess(identity Identity) (string, error) {
	return mint(identity, s.AccessSecret, AccessTokenTTL)
}

func (s *Service) MintRefresh(identity Identity) (string, error) {
	return mint(identity, s.RefreshSecret, RefreshTokenTTL)
}

func (s *Service) VerifyAccess(tokenStr string) (Identity, error) {
	return verify(tokenStr, s.AccessSecret)
}

func (s *Service) VerifyRefresh(tokenStr string) (Identity, error) {
	return verify(tokenStr, s.RefreshSecret)
}

func mint(identity Identity, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(identity.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(tokenStr string, secret []byte) (Identity, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: uint(id), Role: claims.Role}, nil
}
