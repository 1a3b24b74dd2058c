package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

type StartConversationRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type MessageRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func StartConversationHandler(log *slog.Logger, chatService service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StartConversationHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req StartConversationRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		conv, err := chatService.Start(r.Context(), act, req.Subject, req.Message)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, conv)
	}
}

// ListConversationsHandler свои обращения; администратор видит все
func ListConversationsHandler(log *slog.Logger, chatService service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListConversationsHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var status *models.ConversationStatus
		switch raw := models.ConversationStatus(r.URL.Query().Get("status")); raw {
		case "":
		case models.ConversationOpen, models.ConversationClosed:
			status = &raw
		default:
			writeFail(w, logger, http.StatusBadRequest, "invalid status")
			return
		}
		page := pageParams(r)

		convs, total, err := chatService.List(r.Context(), act, status, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, convs, page, total)
	}
}

// MessagesHandler GET /api/chat/conversations/{id}/messages?after={lastID}: клиент опрашивает новые сообщения
func MessagesHandler(log *slog.Logger, chatService service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MessagesHandler"
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
		var after int64
		if raw := r.URL.Query().Get("after"); raw != "" {
			if after, err = strconv.ParseInt(raw, 10, 64); err != nil {
				writeFail(w, logger, http.StatusBadRequest, "invalid after")
				return
			}
		}

		msgs, err := chatService.Messages(r.Context(), act, id, after)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if msgs == nil {
			msgs = []*models.ChatMessage{}
		}
		writeData(w, logger, http.StatusOK, msgs)
	}
}

func SendMessageHandler(log *slog.Logger, chatService service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SendMessageHandler"
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
		var req MessageRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		msg, err := chatService.Send(r.Context(), act, id, req.Body)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, msg)
	}
}

func CloseConversationHandler(log *slog.Logger, chatService service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CloseConversationHandler"
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

		if err := chatService.Close(r.Context(), act, id); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]string{"status": string(models.ConversationClosed)})
	}
}
