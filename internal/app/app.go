package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/linemk/tribal-market/internal/config"
	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/tribal-market/internal/payment/payu"
	"github.com/linemk/tribal-market/internal/service"
	"github.com/linemk/tribal-market/internal/storage"
)

// Services бизнес-логика, которую используют HTTP-обработчики и CLI
type Services struct {
	Auth     service.AuthServiceInterface
	Artists  service.ArtistService
	Artworks service.ArtworkService
	Cart     service.CartService
	Orders   service.OrderService
	Payments service.PaymentService
	Reviews  service.ReviewService
	Favorite service.FavoriteService
	Chat     service.ChatService
	Admin    service.AdminService
	// Users проверяет на каждом запросе, что владелец токена существует и не заблокирован
	Users jwtmiddleware.UserLookup
}

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Publisher events.Publisher
	// AuthService конкретный тип нужен CLI для CreateAdmin
	AuthService *service.AuthService
	Services    Services
}

// NewApp создаёт новый экземпляр App
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	publisher, err := newPublisher(log, cfg.AMQP)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Publisher: publisher,
	}
	app.wire()
	return app, nil
}

// newPublisher RabbitMQ, если задан AMQP_URL, иначе события только пишутся в лог
func newPublisher(log *slog.Logger, cfg config.AMQPConfig) (events.Publisher, error) {
	if cfg.URL == "" {
		log.Info("amqp url is not set, domain events go to the log")
		return events.NewLogPublisher(log), nil
	}
	pub, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	log.Info("publishing domain events to rabbitmq", slog.String("exchange", cfg.Exchange))
	return pub, nil
}

// wire собирает репозитории и сервисы
func (a *App) wire() {
	cfg, log, db := a.Config, a.Logger, a.DB

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(db)
	artistRepo := storage.NewArtistRepository(db)
	artworkRepo := storage.NewArtworkRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	paymentRepo := storage.NewPaymentRepository(db)
	cartRepo := storage.NewCartRepository(db)
	reviewRepo := storage.NewReviewRepository(db)
	favoriteRepo := storage.NewFavoriteRepository(db)
	chatRepo := storage.NewChatRepository(db)

	a.AuthService = service.NewAuthService(log, userRepo, artistRepo, a.Publisher,
		cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute, cfg.OTP.TTL)

	paymentCfg := service.PaymentConfig{
		Credentials: payu.Credentials{Key: cfg.PayU.Key, Salt: cfg.PayU.Salt},
		PaymentURL:  cfg.PayU.PaymentURL,
		SuccessURL:  cfg.PayU.SuccessURL,
		FailureURL:  cfg.PayU.FailureURL,
		CancelURL:   cfg.PayU.CancelURL,
	}

	a.Services = Services{
		Auth:     a.AuthService,
		Artists:  service.NewArtistService(log, artistRepo),
		Artworks: service.NewArtworkService(log, db, artworkRepo, artistRepo),
		Cart:     service.NewCartService(log, db, cartRepo, artworkRepo, artistRepo, orderRepo, a.Publisher),
		Orders:   service.NewOrderService(log, db, artworkRepo, artistRepo, orderRepo, a.Publisher),
		Payments: service.NewPaymentService(log, db, paymentCfg, userRepo, orderRepo, artworkRepo, artistRepo, paymentRepo, a.Publisher),
		Reviews:  service.NewReviewService(log, reviewRepo, artworkRepo),
		Favorite: service.NewFavoriteService(log, favoriteRepo),
		Chat:     service.NewChatService(log, db, chatRepo),
		Admin:    service.NewAdminService(log, userRepo, artistRepo, artworkRepo, orderRepo, a.Publisher),
		Users:    userLookup(userRepo),
	}
}

func userLookup(users storage.UserStorage) jwtmiddleware.UserLookup {
	return func(ctx context.Context, userID int64) (*models.User, error) {
		user, err := users.GetUserByID(ctx, userID)
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, jwtmiddleware.ErrUserNotFound
		}
		return user, err
	}
}

// Close закрывает соединения с брокером и БД
func (a *App) Close() {
	if closer, ok := a.Publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("failed to close publisher", slog.Any("error", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("failed to close database", slog.Any("error", err))
	}
}
