package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const artistSelect = `
		SELECT ar.id, ar.user_id, u.name, ar.tribe, ar.location, ar.bio, ar.is_verified, ar.verified_at,
		       ar.total_sales, ar.total_artworks, ar.created_at, ar.updated_at
		FROM artists ar
		JOIN users u ON u.id = ar.user_id`

// ArtistFilter условия выборки художников
type ArtistFilter struct {
	Verified *bool
	Tribe    string
	Search   string
}

// ArtistStorage описывает методы для работы с профилями художников.
type ArtistStorage interface {
	CreateArtist(ctx context.Context, artist *models.Artist) (*models.Artist, error)
	UpdateArtist(ctx context.Context, artist *models.Artist) error
	GetArtistByID(ctx context.Context, id int64) (*models.Artist, error)
	GetArtistByUserID(ctx context.Context, userID int64) (*models.Artist, error)
	ListArtists(ctx context.Context, filter ArtistFilter, page models.Page) ([]*models.Artist, int, error)
	SetVerified(ctx context.Context, id int64, verified bool) error
	// IncrementSales увеличивает счётчик продаж в рамках оплаты заказа
	IncrementSales(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	AdjustArtworkCount(ctx context.Context, tx *sql.Tx, id int64, delta int) error
	CountVerification(ctx context.Context) (verified, pending int, err error)
}

type artistRepository struct {
	db *sql.DB
}

func NewArtistRepository(db *sql.DB) ArtistStorage {
	return &artistRepository{db: db}
}

func scanArtist(row rowScanner) (*models.Artist, error) {
	a := &models.Artist{}
	var verifiedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Tribe, &a.Location, &a.Bio, &a.IsVerified, &verifiedAt,
		&a.TotalSales, &a.TotalArtworks, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		a.VerifiedAt = &verifiedAt.Time
	}
	return a, nil
}

func (r *artistRepository) CreateArtist(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO artists (user_id, tribe, location, bio) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at",
		artist.UserID, artist.Tribe, artist.Location, artist.Bio,
	).Scan(&artist.ID, &artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, ErrArtistExists
		}
		return nil, fmt.Errorf("failed to create artist: %w", err)
	}
	return artist, nil
}

func (r *artistRepository) UpdateArtist(ctx context.Context, artist *models.Artist) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE artists SET tribe = $1, location = $2, bio = $3, updated_at = NOW() WHERE user_id = $4",
		artist.Tribe, artist.Location, artist.Bio, artist.UserID)
	if err != nil {
		return fmt.Errorf("failed to update artist: %w", err)
	}
	return expectAffected(res, ErrArtistNotFound)
}

func (r *artistRepository) GetArtistByID(ctx context.Context, id int64) (*models.Artist, error) {
	return r.getOne(ctx, artistSelect+" WHERE ar.id = $1", id)
}

func (r *artistRepository) GetArtistByUserID(ctx context.Context, userID int64) (*models.Artist, error) {
	return r.getOne(ctx, artistSelect+" WHERE ar.user_id = $1", userID)
}

func (r *artistRepository) getOne(ctx context.Context, query string, arg int64) (*models.Artist, error) {
	artist, err := scanArtist(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtistNotFound
		}
		return nil, err
	}
	return artist, nil
}

func (r *artistRepository) ListArtists(ctx context.Context, filter ArtistFilter, page models.Page) ([]*models.Artist, int, error) {
	page = page.Normalize()
	var wb whereBuilder
	if filter.Verified != nil {
		wb.add("ar.is_verified = $%d", *filter.Verified)
	}
	if filter.Tribe != "" {
		wb.add("ar.tribe ILIKE $%d", filter.Tribe)
	}
	if filter.Search != "" {
		wb.add("(u.name ILIKE $%[1]d OR ar.bio ILIKE $%[1]d)", "%"+filter.Search+"%")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM artists ar JOIN users u ON u.id = ar.user_id" + wb.sql()
	if err := r.db.QueryRowContext(ctx, countQuery, wb.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count artists: %w", err)
	}

	limit, args := wb.limitOffset(page.Limit, page.Offset())
	rows, err := r.db.QueryContext(ctx, artistSelect+wb.sql()+" ORDER BY ar.total_sales DESC, ar.id"+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := make([]*models.Artist, 0, page.Limit)
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return artists, total, nil
}

// SetVerified выставляет или снимает верификацию; verified_at хранит момент последней верификации
func (r *artistRepository) SetVerified(ctx context.Context, id int64, verified bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE artists
		SET is_verified = $1, verified_at = CASE WHEN $1 THEN NOW() ELSE NULL END, updated_at = NOW()
		WHERE id = $2`, verified, id)
	if err != nil {
		return fmt.Errorf("failed to verify artist: %w", err)
	}
	return expectAffected(res, ErrArtistNotFound)
}

func (r *artistRepository) IncrementSales(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, "UPDATE artists SET total_sales = total_sales + $1, updated_at = NOW() WHERE id = $2", quantity, id)
	if err != nil {
		return fmt.Errorf("failed to update artist sales: %w", err)
	}
	return expectAffected(res, ErrArtistNotFound)
}

func (r *artistRepository) AdjustArtworkCount(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	res, err := tx.ExecContext(ctx, "UPDATE artists SET total_artworks = GREATEST(total_artworks + $1, 0), updated_at = NOW() WHERE id = $2", delta, id)
	if err != nil {
		return fmt.Errorf("failed to update artist artworks: %w", err)
	}
	return expectAffected(res, ErrArtistNotFound)
}

func (r *artistRepository) CountVerification(ctx context.Context) (int, int, error) {
	var verified, pending int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FILTER (WHERE is_verified), COUNT(*) FILTER (WHERE NOT is_verified) FROM artists",
	).Scan(&verified, &pending)
	if err != nil {
		return 0, 0, err
	}
	return verified, pending, nil
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
