package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/linemk/tribal-market/internal/payment/payu"
	"github.com/linemk/tribal-market/internal/service"
)

// RedirectURLs страницы фронтенда, куда возвращается покупатель после оплаты
type RedirectURLs struct {
	Success string
	Failure string
}

// PayRequest телефон покупателя, шлюз без него форму не принимает
type PayRequest struct {
	Phone string `json:"phone" validate:"required,numeric,min=10,max=15"`
}

// PayOrderHandler POST /api/orders/{id}/pay возвращает подписанную форму для шлюза
func PayOrderHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayOrderHandler"
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

		var req PayRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		form, err := paymentService.Initiate(r.Context(), act.UserID, id, req.Phone)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, form)
	}
}

// OrderPaymentsHandler GET /api/orders/{id}/payments
func OrderPaymentsHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderPaymentsHandler"
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

		payments, err := paymentService.ListForOrder(r.Context(), act, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, payments)
	}
}

// PaymentCallbackHandler принимает form POST от шлюза на surl/furl/curl.
// Покупатель в любом случае перенаправляется на страницу фронтенда (303).
func PaymentCallbackHandler(log *slog.Logger, paymentService service.PaymentService, outcome service.Outcome, redirect RedirectURLs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentCallbackHandler"
		logger := log.With(slog.String("op", op), slog.String("outcome", string(outcome)))

		if err := r.ParseForm(); err != nil {
			logger.Warn("failed to parse callback form", slog.Any("error", err))
			redirectTo(w, r, redirect.Failure, "", "invalid callback")
			return
		}
		resp := payu.ParseResponse(r.PostForm)
		orderID := resp.UDF[0]

		result, err := paymentService.HandleCallback(r.Context(), outcome, resp)
		if err != nil {
			reason := "internal error"
			var se *service.Error
			if errors.As(err, &se) {
				reason = se.Msg
			}
			logger.Warn("payment callback rejected", slog.String("txnid", resp.TxnID), slog.Any("error", err))
			redirectTo(w, r, redirect.Failure, orderID, reason)
			return
		}

		orderID = strconv.FormatInt(result.OrderID, 10)
		if result.Success {
			redirectTo(w, r, redirect.Success, orderID, result.Reason)
			return
		}
		redirectTo(w, r, redirect.Failure, orderID, result.Reason)
	}
}

func redirectTo(w http.ResponseWriter, r *http.Request, target, orderID, reason string) {
	u, err := url.Parse(target)
	if err != nil {
		http.Error(w, "invalid redirect target", http.StatusInternalServerError)
		return
	}
	q := u.Query()
	if orderID != "" {
		q.Set("order_id", orderID)
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}
