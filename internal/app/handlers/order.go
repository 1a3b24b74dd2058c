package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

// OrderRequest заказ одной работы
type OrderRequest struct {
	ArtworkID       int64  `json:"artwork_id" validate:"required,gt=0"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	DeliveryAddress string `json:"delivery_address" validate:"required,max=500"`
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=shipped delivered"`
}

func statusParam(r *http.Request) (*models.OrderStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status := models.OrderStatus(raw)
	if !status.Valid() {
		return nil, errors.New("invalid status")
	}
	return &status, nil
}

// CreateOrderHandler POST /api/orders
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		// Извлекаем userID из контекста (установленный JWT middleware)
		act, ok := actor(r)
		if !ok {
			logger.Error("userID not found in context")
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req OrderRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.Create(r.Context(), act.UserID, service.OrderInput{
			ArtworkID:       req.ArtworkID,
			Quantity:        req.Quantity,
			DeliveryAddress: req.DeliveryAddress,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, order)
	}
}

// ListOrdersHandler GET /api/orders: заказы покупателя
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		status, err := statusParam(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		orders, total, err := orderService.ListForBuyer(r.Context(), act.UserID, status, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, orders, page, total)
	}
}

// ArtistOrdersHandler GET /api/artists/me/orders
func ArtistOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ArtistOrdersHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		status, err := statusParam(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		orders, total, err := orderService.ListForArtist(r.Context(), act, status, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, orders, page, total)
	}
}

func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.Get(r.Context(), act, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, order)
	}
}

// CancelOrderHandler POST /api/orders/{id}/cancel
func CancelOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.Cancel(r.Context(), act, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, order)
	}
}

// UpdateOrderStatusHandler PATCH /api/orders/{id}/status
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		var req OrderStatusRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		order, err := orderService.UpdateStatus(r.Context(), act, id, models.OrderStatus(req.Status))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, order)
	}
}
