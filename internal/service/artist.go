package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/storage"
)

type ArtistService interface {
	CreateProfile(ctx context.Context, actor Actor, in ArtistProfileInput) (*models.Artist, error)
	UpdateProfile(ctx context.Context, actor Actor, in ArtistProfileInput) (*models.Artist, error)
	// Get возвращает неверифицированного художника только ему самому и администратору
	Get(ctx context.Context, actor Actor, id int64) (*models.Artist, error)
	ListVerified(ctx context.Context, tribe, search string, page models.Page) ([]*models.Artist, int, error)
}

type ArtistProfileInput struct {
	Tribe    string
	Location string
	Bio      string
}

type artistService struct {
	log        *slog.Logger
	artistRepo storage.ArtistStorage
}

func NewArtistService(log *slog.Logger, artistRepo storage.ArtistStorage) ArtistService {
	return &artistService{log: log, artistRepo: artistRepo}
}

func (s *artistService) CreateProfile(ctx context.Context, actor Actor, in ArtistProfileInput) (*models.Artist, error) {
	const op = "service.ArtistService.CreateProfile"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", actor.UserID))

	if actor.Role != models.RoleArtist {
		return nil, newError(ErrForbidden, "only artists can create a profile")
	}
	artist, err := s.artistRepo.CreateArtist(ctx, &models.Artist{
		UserID:   actor.UserID,
		Tribe:    in.Tribe,
		Location: in.Location,
		Bio:      in.Bio,
	})
	if err != nil {
		logger.Warn("failed to create artist profile", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	logger.Info("artist profile created", slog.Int64("artistID", artist.ID))
	// перечитываем, чтобы получить имя из users
	return s.artistRepo.GetArtistByID(ctx, artist.ID)
}

func (s *artistService) UpdateProfile(ctx context.Context, actor Actor, in ArtistProfileInput) (*models.Artist, error) {
	const op = "service.ArtistService.UpdateProfile"
	err := s.artistRepo.UpdateArtist(ctx, &models.Artist{
		UserID:   actor.UserID,
		Tribe:    in.Tribe,
		Location: in.Location,
		Bio:      in.Bio,
	})
	if err != nil {
		if errors.Is(err, storage.ErrArtistNotFound) {
			return nil, ErrArtistProfileRequired
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	artist, err := s.artistRepo.GetArtistByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return artist, nil
}

func (s *artistService) Get(ctx context.Context, actor Actor, id int64) (*models.Artist, error) {
	const op = "service.ArtistService.Get"
	artist, err := s.artistRepo.GetArtistByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	if !artist.IsVerified && !actor.IsAdmin() && artist.UserID != actor.UserID {
		return nil, ErrArtistNotFound
	}
	return artist, nil
}

func (s *artistService) ListVerified(ctx context.Context, tribe, search string, page models.Page) ([]*models.Artist, int, error) {
	const op = "service.ArtistService.ListVerified"
	verified := true
	artists, total, err := s.artistRepo.ListArtists(ctx, storage.ArtistFilter{Verified: &verified, Tribe: tribe, Search: search}, page)
	if err != nil {
		s.log.Error("failed to list artists", slog.String("op", op), slog.Any("error", err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return artists, total, nil
}
