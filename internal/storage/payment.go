package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const paymentColumns = "id, order_id, txn_id, amount, status, gateway_payment_id, created_at, updated_at"

// PaymentStorage хранит попытки оплаты через шлюз.
type PaymentStorage interface {
	CreatePayment(ctx context.Context, payment *models.PaymentTransaction) (int64, error)
	// LockByTxnIDTx находит транзакцию по txnid шлюза и блокирует её
	LockByTxnIDTx(ctx context.Context, tx *sql.Tx, txnID string) (*models.PaymentTransaction, error)
	UpdatePaymentTx(ctx context.Context, tx *sql.Tx, id int64, status models.TransactionStatus, gatewayPaymentID *string) error
	ListByOrderID(ctx context.Context, orderID int64) ([]*models.PaymentTransaction, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*models.PaymentTransaction, error) {
	p := &models.PaymentTransaction{}
	var gatewayID sql.NullString
	if err := row.Scan(&p.ID, &p.OrderID, &p.TxnID, &p.Amount, &p.Status, &gatewayID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if gatewayID.Valid {
		p.GatewayPaymentID = &gatewayID.String
	}
	return p, nil
}

func (r *paymentRepository) CreatePayment(ctx context.Context, payment *models.PaymentTransaction) (int64, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO payment_transactions (order_id, txn_id, amount, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at",
		payment.OrderID, payment.TxnID, payment.Amount, payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return payment.ID, nil
}

func (r *paymentRepository) LockByTxnIDTx(ctx context.Context, tx *sql.Tx, txnID string) (*models.PaymentTransaction, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payment_transactions WHERE txn_id = $1 FOR UPDATE", txnID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, lockErr(err)
	}
	return payment, nil
}

func (r *paymentRepository) UpdatePaymentTx(ctx context.Context, tx *sql.Tx, id int64, status models.TransactionStatus, gatewayPaymentID *string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE payment_transactions SET status = $1, gateway_payment_id = COALESCE($2, gateway_payment_id), updated_at = NOW() WHERE id = $3",
		status, gatewayPaymentID, id)
	if err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	return expectAffected(res, ErrPaymentNotFound)
}

func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*models.PaymentTransaction, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+paymentColumns+" FROM payment_transactions WHERE order_id = $1 ORDER BY id DESC", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment transactions: %w", err)
	}
	defer rows.Close()

	var payments []*models.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}
