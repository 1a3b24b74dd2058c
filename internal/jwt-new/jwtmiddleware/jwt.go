package jwtmiddleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/tribal-market/internal/domain/models"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

// ErrUserNotFound возвращает UserLookup, если пользователя из токена больше нет
var ErrUserNotFound = errors.New("user not found")

// UserLookup загружает пользователя из токена: заблокированный пользователь теряет доступ сразу,
// а не по истечении токена. Роль тоже берётся из БД.
type UserLookup func(ctx context.Context, userID int64) (*models.User, error)

// NewJWTMiddleware создаёт middleware для проверки JWT. lookup может быть nil,
// тогда доверяем токену целиком.
func NewJWTMiddleware(secret string, lookup UserLookup) func(http.Handler) http.Handler {
	mustSecret(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role, msg := authenticate(r.Header.Get("Authorization"), secret)
			if msg != "" {
				deny(w, http.StatusUnauthorized, msg)
				return
			}
			serveUser(w, r, next, lookup, userID, role)
		})
	}
}

// NewOptionalJWTMiddleware для публичных маршрутов: запрос без заголовка проходит анонимно,
// а присланный, но невалидный токен отклоняется.
func NewOptionalJWTMiddleware(secret string, lookup UserLookup) func(http.Handler) http.Handler {
	mustSecret(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, role, msg := authenticate(header, secret)
			if msg != "" {
				deny(w, http.StatusUnauthorized, msg)
				return
			}
			serveUser(w, r, next, lookup, userID, role)
		})
	}
}

func serveUser(w http.ResponseWriter, r *http.Request, next http.Handler, lookup UserLookup, userID int64, role models.Role) {
	if lookup != nil {
		user, err := lookup(r.Context(), userID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			deny(w, http.StatusUnauthorized, "user not found")
			return
		case err != nil:
			deny(w, http.StatusInternalServerError, "internal server error")
			return
		case !user.IsActive:
			deny(w, http.StatusForbidden, "account is disabled")
			return
		}
		role = user.Role
	}
	next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, role)))
}

func mustSecret(secret string) {
	if secret == "" {
		panic("jwt secret is not set")
	}
}

// authenticate разбирает заголовок Authorization (формат: "Bearer <token>");
// непустое сообщение означает отказ
func authenticate(authHeader, secret string) (int64, models.Role, string) {
	if authHeader == "" {
		return 0, "", "missing token"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, "", "invalid token format"
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", "invalid token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", "invalid token claims"
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", "invalid token claims: sub not found"
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, "", "invalid token claims: invalid user id"
	}

	// токены без роли считаем токенами обычного покупателя
	role := models.RoleViewer
	if rs, ok := claims["role"].(string); ok && models.Role(rs).Valid() {
		role = models.Role(rs)
	}
	return userID, role, ""
}

// RequireRole пропускает запрос только для перечисленных ролей.
// Должен стоять после NewJWTMiddleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, ok := allowed[role]; !ok {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// RoleFromContext извлекает роль пользователя из контекста.
func RoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}

// WithUser кладёт пользователя в контекст так же, как это делает middleware
func WithUser(ctx context.Context, userID int64, role models.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}

// deny отвечает в общем формате {success, error}
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
