package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/storage"
)

// Actor пользователь, от имени которого выполняется операция
type Actor struct {
	UserID int64
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// rollback откатывает транзакцию и пишет в лог, если откат не удался
func rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}

// publish отправляет событие после коммита; ошибка только логируется
func publish(ctx context.Context, pub events.Publisher, logger *slog.Logger, key string, data any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, key, data); err != nil {
		logger.Warn("failed to publish event", slog.String("event", key), slog.Any("error", err))
	}
}

// translate переводит ошибки хранилища в ошибки сервиса
func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, storage.ErrArtistNotFound):
		return ErrArtistNotFound
	case errors.Is(err, storage.ErrArtworkNotFound):
		return ErrArtworkNotFound
	case errors.Is(err, storage.ErrOrderNotFound):
		return ErrOrderNotFound
	case errors.Is(err, storage.ErrPaymentNotFound):
		return ErrPaymentNotFound
	case errors.Is(err, storage.ErrConversationNotFound):
		return ErrConversationNotFound
	case errors.Is(err, storage.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, storage.ErrArtworkHasOrders):
		return ErrArtworkHasOrders
	case errors.Is(err, storage.ErrReviewExists):
		return ErrReviewExists
	case errors.Is(err, storage.ErrArtistExists):
		return ErrArtistProfileExists
	case errors.Is(err, storage.ErrUserExists):
		return ErrEmailTaken
	case errors.Is(err, storage.ErrResourceLocked):
		return ErrBusy
	}
	return err
}
