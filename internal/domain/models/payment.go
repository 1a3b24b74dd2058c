package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxInitiated TransactionStatus = "initiated"
	TxSuccess   TransactionStatus = "success"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Terminal: повторный callback по такой транзакции ничего не меняет
func (s TransactionStatus) Terminal() bool {
	return s == TxSuccess || s == TxFailed || s == TxCancelled
}

// PaymentTransaction попытка оплаты заказа через платёжный шлюз
type PaymentTransaction struct {
	ID               int64             `json:"id"`
	OrderID          int64             `json:"order_id"`
	TxnID            string            `json:"txn_id"`
	Amount           decimal.Decimal   `json:"amount"`
	Status           TransactionStatus `json:"status"`
	GatewayPaymentID *string           `json:"gateway_payment_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
