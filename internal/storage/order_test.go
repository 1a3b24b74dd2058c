package storage_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/storage"
)

var orderCols = []string{"id", "buyer_id", "artist_id", "artwork_id", "title", "quantity", "unit_price", "total_price",
	"status", "payment_status", "delivery_address", "created_at", "updated_at"}

func TestCreateOrder_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(1), int64(11), int64(42), 2, sqlmock.AnyArg(), sqlmock.AnyArg(),
			models.OrderPending, models.PaymentPending, "12 MG Road, Pune").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(100), now, now))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	order := &models.Order{
		BuyerID: 1, ArtistID: 11, ArtworkID: 42, Quantity: 2,
		UnitPrice:  decimal.NewFromInt(1500),
		TotalPrice: decimal.NewFromInt(3000),
		Status:     models.OrderPending, PaymentStatus: models.PaymentPending,
		DeliveryAddress: "12 MG Road, Pune",
	}
	id, err := repo.CreateOrder(context.Background(), tx, order)
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
	assert.Equal(t, int64(100), order.ID)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrderByIDTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.id = $1 FOR UPDATE OF o")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	order, err := repo.LockOrderByIDTx(context.Background(), tx, 5)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.Nil(t, order)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrders_ByBuyerAndStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	buyerID := int64(1)
	status := models.OrderConfirmed
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders o WHERE o.buyer_id = $1 AND o.status = $2")).
		WithArgs(buyerID, status).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY o.created_at DESC, o.id DESC LIMIT $3 OFFSET $4")).
		WithArgs(buyerID, status, 20, 0).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(int64(100), buyerID, int64(11), int64(42), "Harvest Dance", 1,
			"1500.00", "1500.00", "confirmed", "paid", "Pune", now, now))

	orders, total, err := repo.ListOrders(context.Background(), storage.OrderFilter{BuyerID: &buyerID, Status: &status}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "Harvest Dance", orders[0].ArtworkTitle)
	assert.Equal(t, models.PaymentPaid, orders[0].PaymentStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1, payment_status = $2")).
		WithArgs(models.OrderShipped, models.PaymentPaid, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.UpdateStatusTx(context.Background(), tx, 9, models.OrderShipped, models.PaymentPaid)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE payment_status = $1")).
		WithArgs(models.PaymentPaid).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("4500.50"))

	revenue, err := repo.Revenue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4500.50", revenue.StringFixed(2))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockByTxnIDTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewPaymentRepository(db)
	now := time.Now()
	cols := []string{"id", "order_id", "txn_id", "amount", "status", "gateway_payment_id", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_transactions WHERE txn_id = $1 FOR UPDATE")).
		WithArgs("TXN1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(3), int64(100), "TXN1", "1500.00", "initiated", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_transactions WHERE txn_id = $1 FOR UPDATE")).
		WithArgs("MISSING").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	payment, err := repo.LockByTxnIDTx(context.Background(), tx, "TXN1")
	require.NoError(t, err)
	assert.Equal(t, models.TxInitiated, payment.Status)
	assert.Nil(t, payment.GatewayPaymentID)
	assert.Equal(t, "1500.00", payment.Amount.StringFixed(2))

	_, err = repo.LockByTxnIDTx(context.Background(), tx, "MISSING")
	assert.ErrorIs(t, err, storage.ErrPaymentNotFound)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaymentTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewPaymentRepository(db)
	gatewayID := "403993715521"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_transactions SET status = $1")).
		WithArgs(models.TxSuccess, gatewayID, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	assert.NoError(t, repo.UpdatePaymentTx(context.Background(), tx, 3, models.TxSuccess, &gatewayID))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOrderID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := storage.NewPaymentRepository(db)
	now := time.Now()
	cols := []string{"id", "order_id", "txn_id", "amount", "status", "gateway_payment_id", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_transactions WHERE order_id = $1 ORDER BY id DESC")).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(4), int64(100), "TXN2", "1500.00", "success", "403993715522", now, now).
			AddRow(int64(3), int64(100), "TXN1", "1500.00", "success", "403993715521", now, now))

	payments, err := repo.ListByOrderID(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "TXN2", payments[0].TxnID)
	require.NotNil(t, payments[1].GatewayPaymentID)
	assert.Equal(t, "403993715521", *payments[1].GatewayPaymentID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
