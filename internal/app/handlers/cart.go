package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/service"
)

type CartItemRequest struct {
	ArtworkID int64 `json:"artwork_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"required,max=500"`
}

func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		cart, err := cartService.Get(r.Context(), act.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, cart)
	}
}

// AddToCartHandler POST /api/cart: повторное добавление перезаписывает количество
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req CartItemRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		cart, err := cartService.AddItem(r.Context(), act.UserID, req.ArtworkID, req.Quantity)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, cart)
	}
}

func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		artworkID, err := idParam(r, "artworkID")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		cart, err := cartService.RemoveItem(r.Context(), act.UserID, artworkID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, cart)
	}
}

// CheckoutHandler POST /api/cart/checkout: один заказ на каждую позицию корзины
func CheckoutHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req CheckoutRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		orders, err := cartService.Checkout(r.Context(), act.UserID, req.DeliveryAddress)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, orders)
	}
}
