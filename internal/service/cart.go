package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/storage"
)

type CartService interface {
	Get(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, userID, artworkID int64, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, artworkID int64) (*Cart, error)
	// Checkout превращает корзину в заказы одной транзакцией: либо все позиции, либо ни одной
	Checkout(ctx context.Context, userID int64, deliveryAddress string) ([]*models.Order, error)
}

type Cart struct {
	Items []*models.CartItem `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	artworkRepo storage.ArtworkStorage
	artistRepo  storage.ArtistStorage
	orderRepo   storage.OrderStorage
	publisher   events.Publisher
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, artworkRepo storage.ArtworkStorage,
	artistRepo storage.ArtistStorage, orderRepo storage.OrderStorage, publisher events.Publisher) CartService {
	return &cartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		artworkRepo: artworkRepo,
		artistRepo:  artistRepo,
		orderRepo:   orderRepo,
		publisher:   publisher,
	}
}

func newCart(items []*models.CartItem) *Cart {
	total := decimal.Zero
	for _, item := range items {
		if item.Artwork != nil {
			total = total.Add(item.Artwork.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return &Cart{Items: items, Total: total}
}

func (s *cartService) Get(ctx context.Context, userID int64) (*Cart, error) {
	const op = "service.CartService.Get"
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return newCart(items), nil
}

// AddItem кладёт работу в корзину или меняет количество уже лежащей
func (s *cartService) AddItem(ctx context.Context, userID, artworkID int64, quantity int) (*Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("artworkID", artworkID))

	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}
	artwork, err := s.artworkRepo.GetArtworkByID(ctx, artworkID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if !artwork.IsVerified || !artwork.IsAvailable {
		return nil, ErrArtworkUnavailable
	}
	if artwork.StockQuantity < quantity {
		return nil, ErrInsufficientStock
	}

	if err := s.cartRepo.UpsertItem(ctx, userID, artworkID, quantity); err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	logger.Info("cart item saved", slog.Int("quantity", quantity))
	return s.Get(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, artworkID int64) (*Cart, error) {
	const op = "service.CartService.RemoveItem"
	if err := s.cartRepo.RemoveItem(ctx, userID, artworkID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Get(ctx, userID)
}

func (s *cartService) Checkout(ctx context.Context, userID int64, deliveryAddress string) ([]*models.Order, error) {
	const op = "service.CartService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout transaction")

	placer := orderPlacer{artworkRepo: s.artworkRepo, artistRepo: s.artistRepo, orderRepo: s.orderRepo}
	ownArtistID, err := placer.buyerArtistID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get buyer artist profile: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	items, err := s.cartRepo.ListItemsTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to read cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to read cart: %w", op, err)
	}
	if len(items) == 0 {
		rollback(tx, logger)
		return nil, ErrEmptyCart
	}

	// строки работ блокируются в порядке id, чтобы встречные checkout-ы не взаимоблокировались
	sort.Slice(items, func(i, j int) bool { return items[i].ArtworkID < items[j].ArtworkID })

	orders := make([]*models.Order, 0, len(items))
	for _, item := range items {
		order, err := placer.place(ctx, tx, userID, ownArtistID, OrderInput{
			ArtworkID:       item.ArtworkID,
			Quantity:        item.Quantity,
			DeliveryAddress: deliveryAddress,
		})
		if err != nil {
			rollback(tx, logger)
			logger.Warn("checkout item failed", slog.Int64("artworkID", item.ArtworkID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: artwork %d: %w", op, item.ArtworkID, err)
		}
		orders = append(orders, order)
	}

	if err := s.cartRepo.ClearCartTx(ctx, tx, userID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	for _, order := range orders {
		publish(ctx, s.publisher, logger, events.OrderCreated, orderEvent(order, ""))
	}
	logger.Info("checkout completed", slog.Int("orders", len(orders)))
	return orders, nil
}
