package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions: переходы, доступные через смену статуса продавцом.
// Отмена идёт отдельным путём, так как требует возврата остатка.
var orderTransitions = map[OrderStatus]OrderStatus{
	OrderConfirmed: OrderShipped,
	OrderShipped:   OrderDelivered,
}

// CanAdvanceTo проверяет допустимость перехода статуса заказа
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	to, ok := orderTransitions[s]
	return ok && to == next
}

// Cancellable: заказ можно отменить только до отправки
func (s OrderStatus) Cancellable() bool {
	return s == OrderPending || s == OrderConfirmed
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefundPending PaymentStatus = "refund_pending"
)

// Order представляет заказ покупателя на работу художника
type Order struct {
	ID              int64           `json:"id"`
	BuyerID         int64           `json:"buyer_id"`
	ArtistID        int64           `json:"artist_id"`
	ArtworkID       int64           `json:"artwork_id"`
	ArtworkTitle    string          `json:"artwork_title"` // заполняется через JOIN с artworks
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	DeliveryAddress string          `json:"delivery_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
