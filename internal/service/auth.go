package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	security "github.com/linemk/tribal-market/internal/jwt-new"
	"github.com/linemk/tribal-market/internal/storage"
)

const (
	minPasswordLen = 8
	// maxOTPAttempts после стольких неверных вводов код сгорает
	maxOTPAttempts = 5
)

type AuthService struct {
	log        *slog.Logger
	userRepo   storage.UserStorage
	artistRepo storage.ArtistStorage
	publisher  events.Publisher
	jwtSecret  string
	tokenTTL   time.Duration
	otpTTL     time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, artistRepo storage.ArtistStorage,
	publisher events.Publisher, jwtSecret string, tokenTTL, otpTTL time.Duration) *AuthService {
	return &AuthService{
		log:        log,
		userRepo:   userRepo,
		artistRepo: artistRepo,
		publisher:  publisher,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		otpTTL:     otpTTL,
	}
}

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, password string) error
	Me(ctx context.Context, userID int64) (*Profile, error)
}

var _ AuthServiceInterface = (*AuthService)(nil)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// Profile текущий пользователь вместе с профилем художника, если он есть
type Profile struct {
	User   *models.User   `json:"user"`
	Artist *models.Artist `json:"artist,omitempty"`
}

// Register создаёт покупателя или художника. Администраторы создаются только через CLI.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (string, *models.User, error) {
	const op = "auth.Register"
	logger := a.log.With(slog.String("op", op), slog.String("email", in.Email))

	if in.Role == "" {
		in.Role = models.RoleViewer
	}
	if in.Role != models.RoleViewer && in.Role != models.RoleArtist {
		return "", nil, validationError("role must be viewer or artist")
	}

	user, err := a.createUser(ctx, in)
	if err != nil {
		logger.Warn("failed to register user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := security.NewToken(ctx, user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
	return token, user, nil
}

// CreateAdmin используется операторской утилитой
func (a *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	const op = "auth.CreateAdmin"
	user, err := a.createUser(ctx, RegisterInput{Email: email, Password: password, Name: name, Role: models.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("admin created", slog.String("op", op), slog.Int64("userID", user.ID))
	return user, nil
}

func (a *AuthService) createUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	if len(in.Password) < minPasswordLen {
		return nil, validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Name:     strings.TrimSpace(in.Name),
		PassHash: passHash,
		Role:     in.Role,
		IsActive: true,
	})
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// Login сравнивает пароль с сохранённым bcrypt-хешем и выдаёт JWT.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", nil, ErrInvalidCredentials
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		logger.Warn("inactive user tried to log in")
		return "", nil, ErrInactiveUser
	}

	token, err := security.NewToken(ctx, user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, user, nil
}

// ForgotPassword выпускает одноразовый код. Для неизвестного email ошибки нет,
// чтобы по ответу нельзя было перебирать аккаунты.
func (a *AuthService) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("otp requested for unknown email")
			return nil
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("%s: failed to generate otp: %w", op, err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash otp: %w", op, err)
	}
	expiresAt := time.Now().Add(a.otpTTL)
	if err := a.userRepo.SetOTP(ctx, user.ID, otpHash, expiresAt); err != nil {
		logger.Error("failed to store otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to store otp: %w", op, err)
	}

	publish(ctx, a.publisher, logger, events.OTPRequested, events.OTPEvent{
		UserID:    user.ID,
		Email:     user.Email,
		OTP:       otp,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
	logger.Info("otp issued", slog.Int64("userID", user.ID))
	return nil
}

func (a *AuthService) ResetPassword(ctx context.Context, email, otp, password string) error {
	const op = "auth.ResetPassword"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if len(password) < minPasswordLen {
		return validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user.OTPHash == nil || user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		logger.Warn("otp missing or expired")
		return ErrInvalidOTP
	}
	if err := bcrypt.CompareHashAndPassword(user.OTPHash, []byte(otp)); err != nil {
		logger.Warn("otp mismatch")
		if err := a.userRepo.RegisterOTPFailure(ctx, user.ID, maxOTPAttempts); err != nil {
			logger.Error("failed to register otp failure", slog.Any("error", err))
		}
		return ErrInvalidOTP
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.userRepo.ResetPassword(ctx, user.ID, passHash); err != nil {
		logger.Error("failed to reset password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to reset password: %w", op, translate(err))
	}

	logger.Info("password reset", slog.Int64("userID", user.ID))
	return nil
}

func (a *AuthService) Me(ctx context.Context, userID int64) (*Profile, error) {
	const op = "auth.Me"
	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	profile := &Profile{User: user}

	artist, err := a.artistRepo.GetArtistByUserID(ctx, userID)
	switch {
	case err == nil:
		profile.Artist = artist
	case !errors.Is(err, storage.ErrArtistNotFound):
		return nil, fmt.Errorf("%s: failed to get artist: %w", op, err)
	}
	return profile, nil
}

// generateOTP возвращает шестизначный код
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
