package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/events"
	"github.com/linemk/tribal-market/internal/storage"
)

type AdminService interface {
	Stats(ctx context.Context) (*models.Stats, error)
	ListUsers(ctx context.Context, role *models.Role, page models.Page) ([]*models.User, int, error)
	SetUserActive(ctx context.Context, actor Actor, userID int64, active bool) error
	ListArtists(ctx context.Context, verified *bool, page models.Page) ([]*models.Artist, int, error)
	VerifyArtist(ctx context.Context, artistID int64, verified bool) (*models.Artist, error)
	ListArtworks(ctx context.Context, verified *bool, page models.Page) ([]*models.Artwork, int, error)
	VerifyArtwork(ctx context.Context, artworkID int64, verified bool) (*models.Artwork, error)
	ListOrders(ctx context.Context, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error)
}

type adminService struct {
	log         *slog.Logger
	userRepo    storage.UserStorage
	artistRepo  storage.ArtistStorage
	artworkRepo storage.ArtworkStorage
	orderRepo   storage.OrderStorage
	publisher   events.Publisher
}

func NewAdminService(log *slog.Logger, userRepo storage.UserStorage, artistRepo storage.ArtistStorage,
	artworkRepo storage.ArtworkStorage, orderRepo storage.OrderStorage, publisher events.Publisher) AdminService {
	return &adminService{
		log:         log,
		userRepo:    userRepo,
		artistRepo:  artistRepo,
		artworkRepo: artworkRepo,
		orderRepo:   orderRepo,
		publisher:   publisher,
	}
}

// Stats собирает сводку для админ-панели
func (s *adminService) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "service.AdminService.Stats"
	logger := s.log.With(slog.String("op", op))

	usersByRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		logger.Error("failed to count users", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to count users: %w", op, err)
	}
	verifiedArtists, pendingArtists, err := s.artistRepo.CountVerification(ctx)
	if err != nil {
		logger.Error("failed to count artists", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to count artists: %w", op, err)
	}
	verifiedArtworks, pendingArtworks, err := s.artworkRepo.CountVerification(ctx)
	if err != nil {
		logger.Error("failed to count artworks", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to count artworks: %w", op, err)
	}
	ordersByStatus, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		logger.Error("failed to count orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to count orders: %w", op, err)
	}
	revenue, err := s.orderRepo.Revenue(ctx)
	if err != nil {
		logger.Error("failed to sum revenue", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to sum revenue: %w", op, err)
	}

	return &models.Stats{
		UsersByRole:      usersByRole,
		VerifiedArtists:  verifiedArtists,
		PendingArtists:   pendingArtists,
		VerifiedArtworks: verifiedArtworks,
		PendingArtworks:  pendingArtworks,
		OrdersByStatus:   ordersByStatus,
		Revenue:          revenue,
	}, nil
}

func (s *adminService) ListUsers(ctx context.Context, role *models.Role, page models.Page) ([]*models.User, int, error) {
	const op = "service.AdminService.ListUsers"
	if role != nil && !role.Valid() {
		return nil, 0, validationError("unknown role")
	}
	users, total, err := s.userRepo.ListUsers(ctx, role, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return users, total, nil
}

func (s *adminService) SetUserActive(ctx context.Context, actor Actor, userID int64, active bool) error {
	const op = "service.AdminService.SetUserActive"
	if actor.UserID == userID && !active {
		return validationError("you cannot deactivate yourself")
	}
	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	s.log.Info("user activity changed", slog.String("op", op), slog.Int64("userID", userID), slog.Bool("active", active))
	return nil
}

func (s *adminService) ListArtists(ctx context.Context, verified *bool, page models.Page) ([]*models.Artist, int, error) {
	const op = "service.AdminService.ListArtists"
	artists, total, err := s.artistRepo.ListArtists(ctx, storage.ArtistFilter{Verified: verified}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return artists, total, nil
}

func (s *adminService) VerifyArtist(ctx context.Context, artistID int64, verified bool) (*models.Artist, error) {
	const op = "service.AdminService.VerifyArtist"
	logger := s.log.With(slog.String("op", op), slog.Int64("artistID", artistID), slog.Bool("verified", verified))

	if err := s.artistRepo.SetVerified(ctx, artistID, verified); err != nil {
		logger.Warn("failed to verify artist", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	artist, err := s.artistRepo.GetArtistByID(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	publish(ctx, s.publisher, logger, events.ArtistVerified, events.ArtistEvent{
		ArtistID: artist.ID,
		UserID:   artist.UserID,
		Verified: verified,
	})
	logger.Info("artist verification changed")
	return artist, nil
}

func (s *adminService) ListArtworks(ctx context.Context, verified *bool, page models.Page) ([]*models.Artwork, int, error) {
	const op = "service.AdminService.ListArtworks"
	artworks, total, err := s.artworkRepo.ListArtworks(ctx, storage.ArtworkFilter{Verified: verified}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return artworks, total, nil
}

func (s *adminService) VerifyArtwork(ctx context.Context, artworkID int64, verified bool) (*models.Artwork, error) {
	const op = "service.AdminService.VerifyArtwork"
	if err := s.artworkRepo.SetVerified(ctx, artworkID, verified); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	s.log.Info("artwork verification changed", slog.String("op", op), slog.Int64("artworkID", artworkID), slog.Bool("verified", verified))
	artwork, err := s.artworkRepo.GetArtworkByID(ctx, artworkID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return artwork, nil
}

func (s *adminService) ListOrders(ctx context.Context, status *models.OrderStatus, page models.Page) ([]*models.Order, int, error) {
	const op = "service.AdminService.ListOrders"
	if status != nil && !status.Valid() {
		return nil, 0, validationError("unknown order status")
	}
	orders, total, err := s.orderRepo.ListOrders(ctx, storage.OrderFilter{Status: status}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return orders, total, nil
}
