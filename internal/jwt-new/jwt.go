package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/tribal-market/internal/domain/models"
)

var ErrSecretNotSet = errors.New("jwt secret is not set")

// NewToken генерирует JWT-токен для указанного пользователя с заданным временем жизни.
// Секрет приходит из конфига (JWT_SECRET).
// В токен кладём роль, чтобы middleware могло проверять доступ без похода в БД.
func NewToken(ctx context.Context, user *models.User, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrSecretNotSet
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
