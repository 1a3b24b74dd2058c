package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/tribal-market/internal/service"
)

var validate = validator.New()

// Envelope общий формат всех ответов API
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page models.Page, total int) *Pagination {
	page = page.Normalize()
	return &Pagination{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeData(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	writeJSON(w, log, status, Envelope{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, log *slog.Logger, data any, page models.Page, total int) {
	writeJSON(w, log, http.StatusOK, Envelope{Success: true, Data: data, Pagination: newPagination(page, total)})
}

func writeFail(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, Envelope{Success: false, Error: msg})
}

var errorStatus = []struct {
	kind   error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
}

// writeError сопоставляет ошибку сервиса с кодом ответа; текст внутренних ошибок клиенту не отдаём
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.kind) {
			continue
		}
		msg := e.kind.Error()
		var se *service.Error
		if errors.As(err, &se) {
			msg = se.Msg
		}
		log.Warn("request rejected", slog.Int("status", e.status), slog.Any("error", err))
		writeFail(w, log, e.status, msg)
		return
	}

	log.Error("request failed", slog.Any("error", err))
	writeFail(w, log, http.StatusInternalServerError, "internal server error")
}

// decodeBody читает JSON тела запроса и проверяет теги validate
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("invalid field " + verrs[0].Field() + ": " + verrs[0].Tag())
		}
		return errors.New("validation error")
	}
	return nil
}

// actor пользователь из контекста, положенный JWT middleware
func actor(r *http.Request) (service.Actor, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	role, _ := jwtmiddleware.RoleFromContext(r.Context())
	return service.Actor{UserID: userID, Role: role}, true
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// pageParams page и limit из query; некорректные значения заменяются значениями по умолчанию
func pageParams(r *http.Request) models.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.Page{Page: page, Limit: limit}.Normalize()
}

// boolParam nil, если параметр не задан
func boolParam(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}
