package events

import (
	"context"
	"log/slog"
	"time"
)

// Ключи маршрутизации доменных событий
const (
	OrderCreated       = "order.created"
	OrderPaid          = "order.paid"
	OrderCancelled     = "order.cancelled"
	OrderStatusChanged = "order.status_changed"
	OTPRequested       = "user.otp_requested"
	ArtistVerified     = "artist.verified"

	PaymentRefundRequired = "payment.refund_required"
)

// Publisher отправляет событие; ошибка публикации не должна откатывать бизнес-операцию
type Publisher interface {
	Publish(ctx context.Context, key string, data any) error
}

// Envelope общий конверт события
type Envelope struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"` // RFC3339
	Data       any    `json:"data"`
}

func NewEnvelope(key string, data any) Envelope {
	return Envelope{
		Event:      key,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       data,
	}
}

type OrderEvent struct {
	OrderID   int64  `json:"order_id"`
	BuyerID   int64  `json:"buyer_id"`
	ArtistID  int64  `json:"artist_id"`
	ArtworkID int64  `json:"artwork_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// PaymentEvent списанные деньги, которые нужно вернуть покупателю
type PaymentEvent struct {
	OrderID          int64  `json:"order_id"`
	TxnID            string `json:"txn_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	Amount           string `json:"amount"`
	Reason           string `json:"reason"`
}

type OTPEvent struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	OTP       string `json:"otp"`
	ExpiresAt string `json:"expires_at"`
}

// LogValue скрывает код в логах; в брокер событие уходит целиком
func (e OTPEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("user_id", e.UserID),
		slog.String("email", e.Email),
		slog.String("otp", "******"),
		slog.String("expires_at", e.ExpiresAt),
	)
}

type ArtistEvent struct {
	ArtistID int64 `json:"artist_id"`
	UserID   int64 `json:"user_id"`
	Verified bool  `json:"verified"`
}
