package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

// RegisterRequest запрос регистрации; администратора так не создать
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=viewer artist"`
}

// AuthRequest представляет структуру запроса для аутентификации с тегами валидации
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse JWT-токен вместе с пользователем
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterHandler POST /api/auth/register
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := decodeBody(r, &req); err != nil {
			logger.Warn("invalid request", slog.Any("error", err))
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		token, user, err := authService.Register(r.Context(), service.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     models.Role(req.Role),
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, AuthResponse{Token: token, User: user})
	}
}

// AuthHandler – HTTP-обработчик для аутентификации, принимает логгер и экземпляр AuthService
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
		if err := decodeBody(r, &req); err != nil {
			logger.Warn("invalid request", slog.Any("error", err))
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		token, user, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, AuthResponse{Token: token, User: user})
	}
}

// ForgotPasswordHandler всегда отвечает 200, чтобы по ответу нельзя было перебрать почты
func ForgotPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ForgotPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ForgotPasswordRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := authService.ForgotPassword(r.Context(), req.Email); err != nil {
			logger.Error("forgot password failed", slog.Any("error", err))
		}
		writeData(w, logger, http.StatusOK, map[string]string{
			"message": "if the email is registered, an otp has been sent",
		})
	}
}

func ResetPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResetPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ResetPasswordRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := authService.ResetPassword(r.Context(), req.Email, req.OTP, req.Password); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]string{"message": "password updated"})
	}
}

// MeHandler GET /api/me
func MeHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MeHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		profile, err := authService.Me(r.Context(), act.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, profile)
	}
}
