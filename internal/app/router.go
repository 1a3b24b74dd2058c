package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linemk/tribal-market/internal/app/handlers"
	"github.com/linemk/tribal-market/internal/config"
	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/tribal-market/internal/lib/logger/handlers/urllog"
	"github.com/linemk/tribal-market/internal/service"
)

// NewRouter описывает все маршруты API
func NewRouter(log *slog.Logger, cfg *config.Config, svc Services, ping func() error) http.Handler {
	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(handlers.CORS(cfg.CORS.AllowedOrigins))

	router.Get("/health", handlers.HealthHandler(ping))

	redirects := handlers.RedirectURLs{Success: cfg.PayU.FrontendSuccessURL, Failure: cfg.PayU.FrontendFailureURL}

	router.Route("/api", func(r chi.Router) {
		// эндпоинты аутентификации
		r.Post("/auth/register", handlers.RegisterHandler(log, svc.Auth))
		r.Post("/auth/login", handlers.AuthHandler(log, svc.Auth))
		r.Post("/auth/forgot-password", handlers.ForgotPasswordHandler(log, svc.Auth))
		r.Post("/auth/reset-password", handlers.ResetPasswordHandler(log, svc.Auth))

		// callback-и шлюза подписаны хешем, JWT у них нет
		r.Post("/payments/success", handlers.PaymentCallbackHandler(log, svc.Payments, service.OutcomeSuccess, redirects))
		r.Post("/payments/failure", handlers.PaymentCallbackHandler(log, svc.Payments, service.OutcomeFailure, redirects))
		r.Post("/payments/cancel", handlers.PaymentCallbackHandler(log, svc.Payments, service.OutcomeCancel, redirects))

		// публичный каталог; токен, если прислан, открывает автору его непроверенные работы
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.NewOptionalJWTMiddleware(cfg.JWT.Secret, svc.Users))
			r.Get("/artworks", handlers.ListArtworksHandler(log, svc.Artworks))
			r.Get("/artworks/{id}", handlers.GetArtworkHandler(log, svc.Artworks))
			r.Get("/artworks/{id}/reviews", handlers.ListReviewsHandler(log, svc.Reviews))
			r.Get("/artists", handlers.ListArtistsHandler(log, svc.Artists))
			r.Get("/artists/{id}", handlers.GetArtistHandler(log, svc.Artists))
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.NewJWTMiddleware(cfg.JWT.Secret, svc.Users))

			r.Get("/me", handlers.MeHandler(log, svc.Auth))
			r.Post("/artworks/{id}/reviews", handlers.CreateReviewHandler(log, svc.Reviews))

			r.Get("/favorites", handlers.ListFavoritesHandler(log, svc.Favorite))
			r.Post("/favorites/{artworkID}", handlers.AddFavoriteHandler(log, svc.Favorite))
			r.Delete("/favorites/{artworkID}", handlers.RemoveFavoriteHandler(log, svc.Favorite))

			r.Get("/cart", handlers.GetCartHandler(log, svc.Cart))
			r.Post("/cart", handlers.AddToCartHandler(log, svc.Cart))
			r.Delete("/cart/{artworkID}", handlers.RemoveFromCartHandler(log, svc.Cart))
			r.Post("/cart/checkout", handlers.CheckoutHandler(log, svc.Cart))

			r.Post("/orders", handlers.CreateOrderHandler(log, svc.Orders))
			r.Get("/orders", handlers.ListOrdersHandler(log, svc.Orders))
			r.Get("/orders/{id}", handlers.GetOrderHandler(log, svc.Orders))
			r.Post("/orders/{id}/cancel", handlers.CancelOrderHandler(log, svc.Orders))
			r.Post("/orders/{id}/pay", handlers.PayOrderHandler(log, svc.Payments))
			r.Get("/orders/{id}/payments", handlers.OrderPaymentsHandler(log, svc.Payments))

			r.Post("/chat/conversations", handlers.StartConversationHandler(log, svc.Chat))
			r.Get("/chat/conversations", handlers.ListConversationsHandler(log, svc.Chat))
			r.Get("/chat/conversations/{id}/messages", handlers.MessagesHandler(log, svc.Chat))
			r.Post("/chat/conversations/{id}/messages", handlers.SendMessageHandler(log, svc.Chat))
			r.Post("/chat/conversations/{id}/close", handlers.CloseConversationHandler(log, svc.Chat))

			// кабинет художника; администратор проходит везде, где проверяется владение
			r.Group(func(r chi.Router) {
				r.Use(jwtmiddleware.RequireRole(models.RoleArtist, models.RoleAdmin))
				r.Post("/artists/profile", handlers.CreateArtistProfileHandler(log, svc.Artists))
				r.Put("/artists/profile", handlers.UpdateArtistProfileHandler(log, svc.Artists))
				r.Get("/artists/me/artworks", handlers.MyArtworksHandler(log, svc.Artworks))
				r.Get("/artists/me/orders", handlers.ArtistOrdersHandler(log, svc.Orders))
				r.Post("/artworks", handlers.CreateArtworkHandler(log, svc.Artworks))
				r.Put("/artworks/{id}", handlers.UpdateArtworkHandler(log, svc.Artworks))
				r.Delete("/artworks/{id}", handlers.DeleteArtworkHandler(log, svc.Artworks))
				r.Patch("/orders/{id}/status", handlers.UpdateOrderStatusHandler(log, svc.Orders))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(jwtmiddleware.RequireRole(models.RoleAdmin))
				r.Get("/stats", handlers.StatsHandler(log, svc.Admin))
				r.Get("/users", handlers.AdminUsersHandler(log, svc.Admin))
				r.Patch("/users/{id}/active", handlers.SetUserActiveHandler(log, svc.Admin))
				r.Get("/artists", handlers.AdminArtistsHandler(log, svc.Admin))
				r.Post("/artists/{id}/verify", handlers.VerifyArtistHandler(log, svc.Admin))
				r.Get("/artworks", handlers.AdminArtworksHandler(log, svc.Admin))
				r.Post("/artworks/{id}/verify", handlers.VerifyArtworkHandler(log, svc.Admin))
				r.Get("/orders", handlers.AdminOrdersHandler(log, svc.Admin))
			})
		})
	})

	return router
}
