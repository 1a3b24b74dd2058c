package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/storage"
)

type OrderService interface {
	Create(ctx context.Context, buyerID int64, in OrderInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, id int64) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID int64, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error)
	ListForArtist(ctx context.Context, actor Actor, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error)
	Cancel(ctx context.Context, actor Actor, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, id int64, status models.OrderStatus) (*models.Order, error)
}

type OrderInput struct {
	ArtworkID       int64
	Quantity        int
	DeliveryAddress string
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	artworkRepo storage.ArtworkStorage
	artistRepo  storage.ArtistStorage
	orderRepo   storage.OrderStorage
	publisher   events.Publisher
}

func NewOrderService(log *slog.Logger, db *sql.DB, artworkRepo storage.ArtworkStorage, artistRepo storage.ArtistStorage,
	orderRepo storage.OrderStorage, publisher events.Publisher) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		artworkRepo: artworkRepo,
		artistRepo:  artistRepo,
		orderRepo:   orderRepo,
		publisher:   publisher,
	}
}

// orderPlacer резервирует остаток и создаёт заказ внутри чужой транзакции.
// Используется и для одиночного заказа, и для оформления корзины.
type orderPlacer struct {
	artworkRepo storage.ArtworkStorage
	artistRepo  storage.ArtistStorage
	orderRepo   storage.OrderStorage
}

// buyerArtistID возвращает id профиля художника покупателя или 0
func (p orderPlacer) buyerArtistID(ctx context.Context, buyerID int64) (int64, error) {
	artist, err := p.artistRepo.GetArtistByUserID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return artist.ID, nil
}

func (p orderPlacer) place(ctx context.Context, tx *sql.Tx, buyerID, buyerArtistID int64, in OrderInput) (*models.Order, error) {
	if in.Quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}

	// Блокируем строку работы до конца транзакции
	artwork, err := p.artworkRepo.LockArtworkByIDTx(ctx, tx, in.ArtworkID)
	if err != nil {
		return nil, translate(err)
	}
	if !artwork.IsVerified || !artwork.IsAvailable {
		return nil, ErrArtworkUnavailable
	}
	if buyerArtistID != 0 && artwork.ArtistID == buyerArtistID {
		return nil, ErrOwnArtwork
	}
	if artwork.StockQuantity < in.Quantity {
		return nil, ErrInsufficientStock
	}

	order := &models.Order{
		BuyerID:         buyerID,
		ArtistID:        artwork.ArtistID,
		ArtworkID:       artwork.ID,
		ArtworkTitle:    artwork.Title,
		Quantity:        in.Quantity,
		UnitPrice:       artwork.Price,
		TotalPrice:      artwork.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: in.DeliveryAddress,
	}
	if _, err := p.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	// Списываем остаток; при нуле работа снимается с продажи
	if err := p.artworkRepo.DecrementStock(ctx, tx, artwork.ID, in.Quantity); err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func orderEvent(o *models.Order, reason string) events.OrderEvent {
	return events.OrderEvent{
		OrderID:   o.ID,
		BuyerID:   o.BuyerID,
		ArtistID:  o.ArtistID,
		ArtworkID: o.ArtworkID,
		Quantity:  o.Quantity,
		Total:     o.TotalPrice.StringFixed(2),
		Status:    string(o.Status),
		Reason:    reason,
	}
}

// Create оформляет заказ на одну работу.
// Если что-то идет не так, транзакция откатывается и остаток не меняется.
func (s *orderService) Create(ctx context.Context, buyerID int64, in OrderInput) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", buyerID), slog.Int64("artworkID", in.ArtworkID))
	logger.Info("starting order transaction")

	placer := orderPlacer{artworkRepo: s.artworkRepo, artistRepo: s.artistRepo, orderRepo: s.orderRepo}
	ownArtistID, err := placer.buyerArtistID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get buyer artist profile: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := placer.place(ctx, tx, buyerID, ownArtistID, in)
	if err != nil {
		rollback(tx, logger)
		logger.Warn("failed to place order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Коммит транзакции
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	publish(ctx, s.publisher, logger, events.OrderCreated, orderEvent(order, ""))
	logger.Info("order created", slog.Int64("orderID", order.ID))
	return order, nil
}

// canView: покупатель, художник заказа или администратор
func (s *orderService) canView(ctx context.Context, actor Actor, order *models.Order) (bool, error) {
	if actor.IsAdmin() || order.BuyerID == actor.UserID {
		return true, nil
	}
	return s.isOrderArtist(ctx, actor, order)
}

func (s *orderService) isOrderArtist(ctx context.Context, actor Actor, order *models.Order) (bool, error) {
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return false, nil
		}
		return false, err
	}
	return artist.ID == order.ArtistID, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, id int64) (*models.Order, error) {
	const op = "service.OrderService.Get"
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	ok, err := s.canView(ctx, actor, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, ErrNotOwner
	}
	return order, nil
}

func (s *orderService) ListForBuyer(ctx context.Context, buyerID int64, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error) {
	const op = "service.OrderService.ListForBuyer"
	orders, total, err := s.orderRepo.ListOrders(ctx, storage.OrderFilter{BuyerID: &buyerID, Status: status}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return orders, total, nil
}

func (s *orderService) ListForArtist(ctx context.Context, actor Actor, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error) {
	const op = "service.OrderService.ListForArtist"
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return nil, 0, ErrArtistProfileRequired
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	orders, total, err := s.orderRepo.ListOrders(ctx, storage.OrderFilter{ArtistID: &artist.ID, Status: status}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return orders, total, nil
}

// Cancel отменяет заказ до отправки и возвращает остаток на склад.
// Оплаченный заказ помечается как ожидающий возврата средств.
func (s *orderService) Cancel(ctx context.Context, actor Actor, id int64) (*models.Order, error) {
	const op = "service.OrderService.Cancel"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", id), slog.Int64("userID", actor.UserID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if order.BuyerID != actor.UserID && !actor.IsAdmin() {
		rollback(tx, logger)
		return nil, ErrNotOwner
	}
	if !order.Status.Cancellable() {
		rollback(tx, logger)
		logger.Warn("order cannot be cancelled", slog.String("status", string(order.Status)))
		return nil, ErrInvalidTransition
	}

	paymentStatus := models.PaymentFailed
	if order.PaymentStatus == models.PaymentPaid {
		paymentStatus = models.PaymentRefundPending
	}
	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.OrderCancelled, paymentStatus); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order: %w", op, err)
	}

	if err := s.artworkRepo.Restock(ctx, tx, order.ArtworkID, order.Quantity); err != nil {
		rollback(tx, logger)
		logger.Error("failed to restock artwork", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to restock artwork: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = models.OrderCancelled
	order.PaymentStatus = paymentStatus
	publish(ctx, s.publisher, logger, events.OrderCancelled, orderEvent(order, "cancelled by user"))
	logger.Info("order cancelled")
	return order, nil
}

// UpdateStatus продвигает заказ по цепочке confirmed -> shipped -> delivered.
// Менять статус может художник заказа или администратор.
func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, id int64, status models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", id), slog.String("status", string(status)))

	if !status.Valid() {
		return nil, validationError("unknown order status")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if !actor.IsAdmin() {
		ok, err := s.isOrderArtist(ctx, actor, order)
		if err != nil {
			rollback(tx, logger)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			rollback(tx, logger)
			return nil, ErrNotOwner
		}
	}

	if !order.Status.CanAdvanceTo(status) {
		rollback(tx, logger)
		logger.Warn("invalid transition", slog.String("from", string(order.Status)))
		return nil, ErrInvalidTransition
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, status, order.PaymentStatus); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = status
	publish(ctx, s.publisher, logger, events.OrderStatusChanged, orderEvent(order, ""))
	logger.Info("order status updated")
	return order, nil
}
