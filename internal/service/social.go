package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/storage"
)

type ReviewService interface {
	Create(ctx context.Context, userID, artworkID int64, rating int, comment string) (*models.Review, error)
	List(ctx context.Context, artworkID int64, page models.Page) ([]*models.Review, int, error)
}

type reviewService struct {
	log         *slog.Logger
	reviewRepo  storage.ReviewStorage
	artworkRepo storage.ArtworkStorage
}

func NewReviewService(log *slog.Logger, reviewRepo storage.ReviewStorage, artworkRepo storage.ArtworkStorage) ReviewService {
	return &reviewService{log: log, reviewRepo: reviewRepo, artworkRepo: artworkRepo}
}

// Create один отзыв на пользователя и работу; оценка от 1 до 5
func (s *reviewService) Create(ctx context.Context, userID, artworkID int64, rating int, comment string) (*models.Review, error) {
	const op = "service.ReviewService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("artworkID", artworkID))

	if rating < 1 || rating > 5 {
		return nil, validationError("rating must be between 1 and 5")
	}
	artwork, err := s.artworkRepo.GetArtworkByID(ctx, artworkID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if !artwork.IsVerified {
		return nil, ErrArtworkNotFound
	}

	review, err := s.reviewRepo.CreateReview(ctx, &models.Review{
		ArtworkID: artworkID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		logger.Warn("failed to create review", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	logger.Info("review created", slog.Int64("reviewID", review.ID))
	return review, nil
}

func (s *reviewService) List(ctx context.Context, artworkID int64, page models.Page) ([]*models.Review, int, error) {
	const op = "service.ReviewService.List"
	reviews, total, err := s.reviewRepo.ListByArtwork(ctx, artworkID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return reviews, total, nil
}

type FavoriteService interface {
	Add(ctx context.Context, userID, artworkID int64) error
	Remove(ctx context.Context, userID, artworkID int64) error
	List(ctx context.Context, userID int64) ([]*models.Favorite, error)
}

type favoriteService struct {
	log          *slog.Logger
	favoriteRepo storage.FavoriteStorage
}

func NewFavoriteService(log *slog.Logger, favoriteRepo storage.FavoriteStorage) FavoriteService {
	return &favoriteService{log: log, favoriteRepo: favoriteRepo}
}

func (s *favoriteService) Add(ctx context.Context, userID, artworkID int64) error {
	const op = "service.FavoriteService.Add"
	if err := s.favoriteRepo.AddFavorite(ctx, userID, artworkID); err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	return nil
}

func (s *favoriteService) Remove(ctx context.Context, userID, artworkID int64) error {
	const op = "service.FavoriteService.Remove"
	if err := s.favoriteRepo.RemoveFavorite(ctx, userID, artworkID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *favoriteService) List(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	const op = "service.FavoriteService.List"
	favorites, err := s.favoriteRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return favorites, nil
}
