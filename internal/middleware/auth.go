// Package middleware содержит HTTP middleware административной панели маркетплейса.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	tokenKey contextKey = "token"
	actorKey contextKey = "actor"
)

var (
	errMissingToken = errors.New("session expired, please sign in again")
	errForbidden    = errors.New("admin role required")
	errNoSecret     = errors.New("token signing secret is not configured")
)

var adminRoles = map[string]bool{
	"admin":       true,
	"ADMIN":       true,
	"super_admin": true,
}

// BearerAuth проверяет токен администратора из заголовка Authorization.
type BearerAuth struct {
	secretKey []byte
	nowFn     func() time.Time
}

// NewBearerAuth создаёт BearerAuth. Токены принимаются только с действительной HMAC-подписью,
// при пустом secret отклоняется любой запрос.
func NewBearerAuth(secret string) *BearerAuth {
	return &BearerAuth{
		secretKey: []byte(secret),
		nowFn:     time.Now,
	}
}

// Middleware проверяет токен и добавляет токен и администратора в контекст запроса.
func (a *BearerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, errMissingToken)
			return
		}

		claims, err := a.parse(raw)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, errMissingToken)
			return
		}

		if role, ok := claims["role"].(string); ok && !adminRoles[role] {
			writeAuthError(w, http.StatusForbidden, errForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), tokenKey, raw)
		ctx = context.WithValue(ctx, actorKey, actorFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *BearerAuth) parse(raw string) (jwt.MapClaims, error) {
	if len(a.secretKey) == 0 {
		return nil, errNoSecret
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(a.nowFn),
	)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func actorFromClaims(claims jwt.MapClaims) string {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	for _, key := range []string{"id", "email"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return "unknown"
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// TokenFromContext возвращает токен администратора, сохранённый BearerAuth.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// ActorFromContext возвращает идентификатор администратора для журнала действий.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return ""
}
