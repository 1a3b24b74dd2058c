package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

type ReviewStorage interface {
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	ListByArtwork(ctx context.Context, artworkID int64, page models.Page) ([]*models.Review, int, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewStorage {
	return &reviewRepository{db: db}
}

// CreateReview сохраняет отзыв; повторный отзыв того же пользователя даёт ErrReviewExists
func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO reviews (artwork_id, user_id, rating, comment) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		review.ArtworkID, review.UserID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		switch pqCode(err) {
		case codeUniqueViolation:
			return nil, ErrReviewExists
		case codeForeignKeyViolation:
			return nil, ErrArtworkNotFound
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) ListByArtwork(ctx context.Context, artworkID int64, page models.Page) ([]*models.Review, int, error) {
	page = page.Normalize()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE artwork_id = $1", artworkID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT r.id, r.artwork_id, r.user_id, u.name, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.artwork_id = $1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, artworkID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		rv := &models.Review{}
		if err := rows.Scan(&rv.ID, &rv.ArtworkID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
