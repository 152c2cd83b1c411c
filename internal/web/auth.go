package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator decides whether a request may run extractions. Without a secret every
// caller is trusted.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authorized reports whether r carries a bearer token signed with the secret whose
// "admin" claim is true.
func (a *Authenticator) Authorized(r *http.Request) bool {
	if len(a.secret) == 0 {
		return true
	}

	raw, ok := bearerToken(r)
	if !ok {
		return false
	}

	claims, err := a.parse(raw)
	if err != nil {
		return false
	}
	admin, _ := claims["admin"].(bool)
	return admin
}

func (a *Authenticator) parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
