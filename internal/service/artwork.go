package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/storage"
)

type ArtworkService interface {
	Create(ctx context.Context, actor Actor, in ArtworkInput) (*models.Artwork, error)
	Update(ctx context.Context, actor Actor, id int64, in ArtworkInput) (*models.Artwork, error)
	Delete(ctx context.Context, actor Actor, id int64) error
	Get(ctx context.Context, actor Actor, id int64) (*models.Artwork, error)
	// Browse публичный каталог: только верифицированные работы
	Browse(ctx context.Context, filter storage.ArtworkFilter, page models.Page) ([]*models.Artwork, int, error)
	ListMine(ctx context.Context, actor Actor, page models.Page) ([]*models.Artwork, int, error)
}

type ArtworkInput struct {
	Title         string
	Description   string
	Tribe         string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
	ImageURLs     []string
}

func (in ArtworkInput) validate() error {
	if !in.Price.IsPositive() {
		return validationError("price must be positive")
	}
	if in.Price.Exponent() < -2 {
		return validationError("price must have at most two decimal places")
	}
	if in.StockQuantity < 0 {
		return validationError("stock_quantity must not be negative")
	}
	return nil
}

type artworkService struct {
	log         *slog.Logger
	db          *sql.DB
	artworkRepo storage.ArtworkStorage
	artistRepo  storage.ArtistStorage
}

func NewArtworkService(log *slog.Logger, db *sql.DB, artworkRepo storage.ArtworkStorage, artistRepo storage.ArtistStorage) ArtworkService {
	return &artworkService{
		log:         log,
		db:          db,
		artworkRepo: artworkRepo,
		artistRepo:  artistRepo,
	}
}

// Create добавляет работу и увеличивает счётчик работ художника в одной транзакции.
// Новая работа ждёт верификации администратором.
func (s *artworkService) Create(ctx context.Context, actor Actor, in ArtworkInput) (*models.Artwork, error) {
	const op = "service.ArtworkService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", actor.UserID))

	if err := in.validate(); err != nil {
		return nil, err
	}
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return nil, ErrArtistProfileRequired
		}
		return nil, fmt.Errorf("%s: failed to get artist: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	id, err := s.artworkRepo.CreateArtwork(ctx, tx, &models.Artwork{
		ArtistID:      artist.ID,
		Title:         in.Title,
		Description:   in.Description,
		Tribe:         in.Tribe,
		Category:      in.Category,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURLs:     in.ImageURLs,
	})
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to create artwork", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create artwork: %w", op, err)
	}

	if err := s.artistRepo.AdjustArtworkCount(ctx, tx, artist.ID, 1); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update artist stats", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update artist stats: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("artwork created", slog.Int64("artworkID", id))
	return s.artworkRepo.GetArtworkByID(ctx, id)
}

// ownedArtwork загружает работу и проверяет, что актор её автор или администратор
func (s *artworkService) ownedArtwork(ctx context.Context, actor Actor, id int64) (*models.Artwork, error) {
	artwork, err := s.artworkRepo.GetArtworkByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if actor.IsAdmin() {
		return artwork, nil
	}
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return nil, ErrNotOwner
		}
		return nil, err
	}
	if artist.ID != artwork.ArtistID {
		return nil, ErrNotOwner
	}
	return artwork, nil
}

// Update перезаписывает карточку; после любой правки работа снова требует верификации
func (s *artworkService) Update(ctx context.Context, actor Actor, id int64, in ArtworkInput) (*models.Artwork, error) {
	const op = "service.ArtworkService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("artworkID", id))

	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.ownedArtwork(ctx, actor, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.artworkRepo.UpdateArtwork(ctx, &models.Artwork{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		Tribe:         in.Tribe,
		Category:      in.Category,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURLs:     in.ImageURLs,
	})
	if err != nil {
		logger.Error("failed to update artwork", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	logger.Info("artwork updated, verification reset")
	return s.artworkRepo.GetArtworkByID(ctx, id)
}

func (s *artworkService) Delete(ctx context.Context, actor Actor, id int64) error {
	const op = "service.ArtworkService.Delete"
	logger := s.log.With(slog.String("op", op), slog.Int64("artworkID", id))

	artwork, err := s.ownedArtwork(ctx, actor, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.artworkRepo.DeleteArtwork(ctx, tx, id); err != nil {
		rollback(tx, logger)
		logger.Warn("failed to delete artwork", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, translate(err))
	}

	if err := s.artistRepo.AdjustArtworkCount(ctx, tx, artwork.ArtistID, -1); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update artist stats", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update artist stats: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("artwork deleted")
	return nil
}

func (s *artworkService) Get(ctx context.Context, actor Actor, id int64) (*models.Artwork, error) {
	const op = "service.ArtworkService.Get"
	artwork, err := s.artworkRepo.GetArtworkByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if artwork.IsVerified || actor.IsAdmin() {
		return artwork, nil
	}
	if actor.UserID != 0 {
		artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
		if err == nil && artist.ID == artwork.ArtistID {
			return artwork, nil
		}
	}
	return nil, ErrArtworkNotFound
}

func (s *artworkService) Browse(ctx context.Context, filter storage.ArtworkFilter, page models.Page) ([]*models.Artwork, int, error) {
	const op = "service.ArtworkService.Browse"
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, 0, validationError("min_price must not exceed max_price")
	}
	verified := true
	filter.Verified = &verified

	artworks, total, err := s.artworkRepo.ListArtworks(ctx, filter, page)
	if err != nil {
		s.log.Error("failed to list artworks", slog.String("op", op), slog.Any("error", err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return artworks, total, nil
}

func (s *artworkService) ListMine(ctx context.Context, actor Actor, page models.Page) ([]*models.Artwork, int, error) {
	const op = "service.ArtworkService.ListMine"
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return nil, 0, ErrArtistProfileRequired
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	artworks, total, err := s.artworkRepo.ListArtworks(ctx, storage.ArtworkFilter{ArtistID: &artist.ID}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return artworks, total, nil
}
