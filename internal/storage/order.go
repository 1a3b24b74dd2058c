package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const orderSelect = `
		SELECT o.id, o.buyer_id, o.artist_id, o.artwork_id, a.title, o.quantity, o.unit_price, o.total_price,
		       o.status, o.payment_status, o.delivery_address, o.created_at, o.updated_at
		FROM orders o
		JOIN artworks a ON a.id = o.artwork_id`

// OrderFilter условия выборки заказов; nil-поля не фильтруют
type OrderFilter struct {
	BuyerID  *int64
	ArtistID *int64
	Status   *models.OrderStatus
}

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет новый заказ в таблицу orders с использованием транзакции.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// LockOrderByIDTx блокирует строку заказа до конца транзакции
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus, paymentStatus models.PaymentStatus) error
	ListOrders(ctx context.Context, filter OrderFilter, page models.Page) ([]*models.Order, int, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error)
	// Revenue сумма оплаченных заказов
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

// orderRepository: конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	if err := row.Scan(&o.ID, &o.BuyerID, &o.ArtistID, &o.ArtworkID, &o.ArtworkTitle, &o.Quantity, &o.UnitPrice, &o.TotalPrice,
		&o.Status, &o.PaymentStatus, &o.DeliveryAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	query := `
		INSERT INTO orders (buyer_id, artist_id, artwork_id, quantity, unit_price, total_price, status, payment_status, delivery_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		order.BuyerID, order.ArtistID, order.ArtworkID, order.Quantity, order.UnitPrice, order.TotalPrice,
		order.Status, order.PaymentStatus, order.DeliveryAddress,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+" WHERE o.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx, orderSelect+" WHERE o.id = $1 FOR UPDATE OF o", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, lockErr(err)
	}
	return order, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus, paymentStatus models.PaymentStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, payment_status = $2, updated_at = NOW() WHERE id = $3",
		status, paymentStatus, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

// ListOrders возвращает заказы от новых к старым вместе с общим количеством.
func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter, page models.Page) ([]*models.Order, int, error) {
	page = page.Normalize()
	var wb whereBuilder
	if filter.BuyerID != nil {
		wb.add("o.buyer_id = $%d", *filter.BuyerID)
	}
	if filter.ArtistID != nil {
		wb.add("o.artist_id = $%d", *filter.ArtistID)
	}
	if filter.Status != nil {
		wb.add("o.status = $%d", *filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+wb.sql(), wb.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit, args := wb.limitOffset(page.Limit, page.Offset())
	rows, err := r.db.QueryContext(ctx, orderSelect+wb.sql()+" ORDER BY o.created_at DESC, o.id DESC"+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0, page.Limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *orderRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE payment_status = $1", models.PaymentPaid).Scan(&revenue)
	if err != nil {
		return decimal.Zero, err
	}
	return revenue, nil
}
