package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/payment/payu"
	"github.com/linemk/tribal-market/internal/storage"
)

// Outcome адрес, на который шлюз прислал callback
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeCancel  Outcome = "cancel"
)

const (
	reasonCancelledRefund = "order was cancelled, refund pending"
	reasonDuplicateRefund = "order already paid, duplicate payment will be refunded"
)

const (
	txnIDPrefix    = "TXN"
	txnIDMaxLen    = 25
	productInfoMax = 100
)

type PaymentConfig struct {
	Credentials payu.Credentials
	PaymentURL  string
	SuccessURL  string
	FailureURL  string
	CancelURL   string
}

// PaymentForm форма, которую фронтенд отправляет POST-ом на ActionURL
type PaymentForm struct {
	ActionURL string            `json:"action_url"`
	TxnID     string            `json:"txn_id"`
	Fields    map[string]string `json:"fields"`
}

// CallbackResult итог обработки callback-а для редиректа покупателя
type CallbackResult struct {
	OrderID int64
	Success bool
	Reason  string
}

type PaymentService interface {
	// Initiate phone обязателен для шлюза, в профиле пользователя его нет
	Initiate(ctx context.Context, buyerID, orderID int64, phone string) (*PaymentForm, error)
	HandleCallback(ctx context.Context, outcome Outcome, resp payu.Response) (*CallbackResult, error)
	// ListForOrder все попытки оплаты заказа, включая повторные и ожидающие возврата
	ListForOrder(ctx context.Context, actor Actor, orderID int64) ([]*models.PaymentTransaction, error)
}

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	cfg         PaymentConfig
	userRepo    storage.UserStorage
	orderRepo   storage.OrderStorage
	artworkRepo storage.ArtworkStorage
	artistRepo  storage.ArtistStorage
	paymentRepo storage.PaymentStorage
	publisher   events.Publisher
}

func NewPaymentService(log *slog.Logger, db *sql.DB, cfg PaymentConfig, userRepo storage.UserStorage, orderRepo storage.OrderStorage,
	artworkRepo storage.ArtworkStorage, artistRepo storage.ArtistStorage, paymentRepo storage.PaymentStorage,
	publisher events.Publisher) PaymentService {
	return &paymentService{
		log:         log,
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		artworkRepo: artworkRepo,
		artistRepo:  artistRepo,
		paymentRepo: paymentRepo,
		publisher:   publisher,
	}
}

// newTxnID уникальный id транзакции для шлюза, не длиннее 25 символов
func newTxnID() string {
	id := txnIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:txnIDMaxLen]
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}

// Initiate регистрирует попытку оплаты и возвращает подписанную форму для шлюза
func (s *paymentService) Initiate(ctx context.Context, buyerID, orderID int64, phone string) (*PaymentForm, error) {
	const op = "service.PaymentService.Initiate"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", buyerID), slog.Int64("orderID", orderID))

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validationError("phone is required")
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if order.BuyerID != buyerID {
		return nil, ErrNotOwner
	}
	if order.Status != models.OrderPending ||
		(order.PaymentStatus != models.PaymentPending && order.PaymentStatus != models.PaymentFailed) {
		logger.Warn("order is not payable", slog.String("status", string(order.Status)),
			slog.String("payment_status", string(order.PaymentStatus)))
		return nil, ErrOrderNotPayable
	}

	buyer, err := s.userRepo.GetUserByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	payment := &models.PaymentTransaction{
		OrderID: order.ID,
		TxnID:   newTxnID(),
		Amount:  order.TotalPrice,
		Status:  models.TxInitiated,
	}
	if _, err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
		logger.Error("failed to create payment transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	productInfo := order.ArtworkTitle
	if len(productInfo) > productInfoMax {
		productInfo = productInfo[:productInfoMax]
	}
	req := payu.Request{
		TxnID:       payment.TxnID,
		Amount:      payment.Amount,
		ProductInfo: productInfo,
		FirstName:   firstName(buyer.Name),
		Email:       buyer.Email,
		Phone:       phone,
		UDF:         [5]string{strconv.FormatInt(order.ID, 10)},
		SuccessURL:  s.cfg.SuccessURL,
		FailureURL:  s.cfg.FailureURL,
		CancelURL:   s.cfg.CancelURL,
	}

	logger.Info("payment initiated", slog.String("txnid", payment.TxnID))
	return &PaymentForm{
		ActionURL: s.cfg.PaymentURL,
		TxnID:     payment.TxnID,
		Fields:    s.cfg.Credentials.Fields(req),
	}, nil
}

func (s *paymentService) ListForOrder(ctx context.Context, actor Actor, orderID int64) ([]*models.PaymentTransaction, error) {
	const op = "service.PaymentService.ListForOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if order.BuyerID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}

	payments, err := s.paymentRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		s.log.Error("failed to list payments", slog.String("op", op), slog.Int64("orderID", orderID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payments == nil {
		payments = []*models.PaymentTransaction{}
	}
	return payments, nil
}

// HandleCallback применяет результат оплаты. Повторный callback по уже завершённой
// транзакции ничего не меняет и возвращает сохранённый результат.
func (s *paymentService) HandleCallback(ctx context.Context, outcome Outcome, resp payu.Response) (*CallbackResult, error) {
	const op = "service.PaymentService.HandleCallback"
	logger := s.log.With(slog.String("op", op), slog.String("outcome", string(outcome)), slog.String("txnid", resp.TxnID))
	logger.Info("payment callback received", slog.String("status", resp.Status))

	if err := s.cfg.Credentials.Verify(resp); err != nil {
		logger.Warn("payment hash verification failed", slog.Any("error", err))
		return nil, ErrHashMismatch
	}
	amount, err := resp.ParsedAmount()
	if err != nil {
		logger.Warn("invalid amount in callback", slog.Any("error", err))
		return nil, ErrAmountMismatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	payment, err := s.paymentRepo.LockByTxnIDTx(ctx, tx, resp.TxnID)
	if err != nil {
		rollback(tx, logger)
		logger.Warn("payment transaction not found", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if !payment.Amount.Equal(amount) {
		rollback(tx, logger)
		logger.Warn("amount mismatch", slog.String("stored", payment.Amount.StringFixed(2)), slog.String("posted", resp.Amount))
		return nil, ErrAmountMismatch
	}

	if payment.Status.Terminal() {
		rollback(tx, logger)
		logger.Info("duplicate callback ignored", slog.String("stored_status", string(payment.Status)))
		return &CallbackResult{
			OrderID: payment.OrderID,
			Success: payment.Status == models.TxSuccess,
			Reason:  "already processed",
		}, nil
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, payment.OrderID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if outcome == OutcomeSuccess && resp.Status == payu.StatusSuccess {
		return s.applySuccess(ctx, tx, logger, payment, order, resp)
	}
	return s.applyFailure(ctx, tx, logger, outcome, payment, order, resp)
}

func (s *paymentService) applySuccess(ctx context.Context, tx *sql.Tx, logger *slog.Logger,
	payment *models.PaymentTransaction, order *models.Order, resp payu.Response) (*CallbackResult, error) {
	const op = "service.PaymentService.applySuccess"

	var gatewayID *string
	if resp.MihPayID != "" {
		gatewayID = &resp.MihPayID
	}
	if err := s.paymentRepo.UpdatePaymentTx(ctx, tx, payment.ID, models.TxSuccess, gatewayID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update payment transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refund := ""
	switch {
	case order.Status == models.OrderPending:
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.OrderConfirmed, models.PaymentPaid); err != nil {
			rollback(tx, logger)
			logger.Error("failed to confirm order", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.artistRepo.IncrementSales(ctx, tx, order.ArtistID, order.Quantity); err != nil {
			rollback(tx, logger)
			logger.Error("failed to update artist sales", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order.Status = models.OrderConfirmed
		order.PaymentStatus = models.PaymentPaid
	case order.Status == models.OrderCancelled:
		// заказ успели отменить до прихода оплаты: деньги нужно вернуть
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, order.Status, models.PaymentRefundPending); err != nil {
			rollback(tx, logger)
			logger.Error("failed to mark refund", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order.PaymentStatus = models.PaymentRefundPending
		refund = reasonCancelledRefund
	default:
		// заказ уже оплачен другой попыткой; сам заказ не трогаем, возвращаем только эту оплату
		refund = reasonDuplicateRefund
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	if refund != "" {
		logger.Warn("payment captured for non-pending order", slog.String("order_status", string(order.Status)),
			slog.String("reason", refund))
		publish(ctx, s.publisher, logger, events.PaymentRefundRequired, events.PaymentEvent{
			OrderID:          order.ID,
			TxnID:            payment.TxnID,
			GatewayPaymentID: resp.MihPayID,
			Amount:           payment.Amount.StringFixed(2),
			Reason:           refund,
		})
		return &CallbackResult{
			OrderID: order.ID,
			Success: order.PaymentStatus == models.PaymentPaid,
			Reason:  refund,
		}, nil
	}

	publish(ctx, s.publisher, logger, events.OrderPaid, orderEvent(order, ""))
	logger.Info("payment succeeded", slog.Int64("orderID", order.ID))
	return &CallbackResult{OrderID: order.ID, Success: true}, nil
}

func (s *paymentService) applyFailure(ctx context.Context, tx *sql.Tx, logger *slog.Logger, outcome Outcome,
	payment *models.PaymentTransaction, order *models.Order, resp payu.Response) (*CallbackResult, error) {
	const op = "service.PaymentService.applyFailure"

	txStatus := models.TxFailed
	reason := resp.ErrorMessage
	if outcome == OutcomeCancel {
		txStatus = models.TxCancelled
		if reason == "" {
			reason = "payment cancelled"
		}
	}
	if reason == "" {
		reason = "payment failed"
	}

	if err := s.paymentRepo.UpdatePaymentTx(ctx, tx, payment.ID, txStatus, nil); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update payment transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// остаток возвращаем только один раз: отменённый заказ уже вернул его
	cancelled := false
	if order.Status == models.OrderPending {
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.OrderCancelled, models.PaymentFailed); err != nil {
			rollback(tx, logger)
			logger.Error("failed to cancel order", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.artworkRepo.Restock(ctx, tx, order.ArtworkID, order.Quantity); err != nil {
			rollback(tx, logger)
			logger.Error("failed to restock artwork", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order.Status = models.OrderCancelled
		order.PaymentStatus = models.PaymentFailed
		cancelled = true
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	if cancelled {
		publish(ctx, s.publisher, logger, events.OrderCancelled, orderEvent(order, reason))
	}
	logger.Info("payment not completed", slog.Int64("orderID", order.ID), slog.String("reason", reason))
	return &CallbackResult{OrderID: order.ID, Success: false, Reason: reason}, nil
}
