package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

type FavoriteStorage interface {
	// AddFavorite идемпотентен: повторное добавление не является ошибкой
	AddFavorite(ctx context.Context, userID, artworkID int64) error
	RemoveFavorite(ctx context.Context, userID, artworkID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]*models.Favorite, error)
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) FavoriteStorage {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) AddFavorite(ctx context.Context, userID, artworkID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO favorites (user_id, artwork_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userID, artworkID)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return ErrArtworkNotFound
		}
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) RemoveFavorite(ctx context.Context, userID, artworkID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM favorites WHERE user_id = $1 AND artwork_id = $2", userID, artworkID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) ListFavorites(ctx context.Context, userID int64) ([]*models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.created_at, a.id, a.artist_id, u.name, a.title, a.description, a.tribe, a.category, a.price,
		       a.stock_quantity, a.is_available, a.is_verified, a.image_urls,
		       COALESCE(rv.avg_rating, 0), COALESCE(rv.review_count, 0), a.created_at, a.updated_at
		FROM favorites f
		JOIN artworks a ON a.id = f.artwork_id
		JOIN artists ar ON ar.id = a.artist_id
		JOIN users u ON u.id = ar.user_id
		LEFT JOIN (
			SELECT artwork_id, AVG(rating)::float8 AS avg_rating, COUNT(*) AS review_count
			FROM reviews GROUP BY artwork_id
		) rv ON rv.artwork_id = a.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]*models.Favorite, 0)
	for rows.Next() {
		fav := &models.Favorite{UserID: userID}
		artwork, err := scanArtwork(prefixScanner{row: rows, prefix: []any{&fav.CreatedAt}})
		if err != nil {
			return nil, err
		}
		fav.ArtworkID = artwork.ID
		fav.Artwork = artwork
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

// prefixScanner позволяет переиспользовать scanArtwork, когда перед колонками работы идут свои
type prefixScanner struct {
	row    rowScanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(append([]any{}, p.prefix...), dest...)...)
}
