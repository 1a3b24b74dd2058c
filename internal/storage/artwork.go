package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

var artworkOrder = map[string]string{
	SortNewest:    " ORDER BY a.created_at DESC, a.id DESC",
	SortPriceAsc:  " ORDER BY a.price ASC, a.id",
	SortPriceDesc: " ORDER BY a.price DESC, a.id",
}

const artworkFrom = `
		FROM artworks a
		JOIN artists ar ON ar.id = a.artist_id
		JOIN users u ON u.id = ar.user_id
		LEFT JOIN (
			SELECT artwork_id, AVG(rating)::float8 AS avg_rating, COUNT(*) AS review_count
			FROM reviews GROUP BY artwork_id
		) rv ON rv.artwork_id = a.id`

const artworkSelect = `
		SELECT a.id, a.artist_id, u.name, a.title, a.description, a.tribe, a.category, a.price,
		       a.stock_quantity, a.is_available, a.is_verified, a.image_urls,
		       COALESCE(rv.avg_rating, 0), COALESCE(rv.review_count, 0), a.created_at, a.updated_at` + artworkFrom

// ArtworkFilter условия каталога. Пустые поля не участвуют в выборке.
type ArtworkFilter struct {
	Search   string
	Tribe    string
	Category string
	ArtistID *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Verified *bool
	Sort     string
}

// ArtworkStorage описывает методы для работы с каталогом работ.
type ArtworkStorage interface {
	CreateArtwork(ctx context.Context, tx *sql.Tx, artwork *models.Artwork) (int64, error)
	UpdateArtwork(ctx context.Context, artwork *models.Artwork) error
	DeleteArtwork(ctx context.Context, tx *sql.Tx, id int64) error
	GetArtworkByID(ctx context.Context, id int64) (*models.Artwork, error)
	// LockArtworkByIDTx блокирует строку работы до конца транзакции
	LockArtworkByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Artwork, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	Restock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	ListArtworks(ctx context.Context, filter ArtworkFilter, page models.Page) ([]*models.Artwork, int, error)
	SetVerified(ctx context.Context, id int64, verified bool) error
	CountVerification(ctx context.Context) (verified, pending int, err error)
}

type artworkRepository struct {
	db *sql.DB
}

func NewArtworkRepository(db *sql.DB) ArtworkStorage {
	return &artworkRepository{db: db}
}

func scanArtwork(row rowScanner) (*models.Artwork, error) {
	a := &models.Artwork{}
	if err := row.Scan(&a.ID, &a.ArtistID, &a.ArtistName, &a.Title, &a.Description, &a.Tribe, &a.Category, &a.Price,
		&a.StockQuantity, &a.IsAvailable, &a.IsVerified, pq.Array(&a.ImageURLs),
		&a.AvgRating, &a.ReviewCount, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if a.ImageURLs == nil {
		a.ImageURLs = []string{}
	}
	return a, nil
}

func (r *artworkRepository) CreateArtwork(ctx context.Context, tx *sql.Tx, artwork *models.Artwork) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO artworks (artist_id, title, description, tribe, category, price, stock_quantity, is_available, image_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		artwork.ArtistID, artwork.Title, artwork.Description, artwork.Tribe, artwork.Category, artwork.Price,
		artwork.StockQuantity, artwork.StockQuantity > 0, pq.Array(artwork.ImageURLs),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create artwork: %w", err)
	}
	return id, nil
}

// UpdateArtwork перезаписывает карточку работы и снимает верификацию
func (r *artworkRepository) UpdateArtwork(ctx context.Context, artwork *models.Artwork) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE artworks
		SET title = $1, description = $2, tribe = $3, category = $4, price = $5, stock_quantity = $6,
		    is_available = $7, image_urls = $8, is_verified = FALSE, updated_at = NOW()
		WHERE id = $9`,
		artwork.Title, artwork.Description, artwork.Tribe, artwork.Category, artwork.Price, artwork.StockQuantity,
		artwork.StockQuantity > 0, pq.Array(artwork.ImageURLs), artwork.ID)
	if err != nil {
		return fmt.Errorf("failed to update artwork: %w", err)
	}
	return expectAffected(res, ErrArtworkNotFound)
}

func (r *artworkRepository) DeleteArtwork(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM artworks WHERE id = $1", id)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return ErrArtworkHasOrders
		}
		return fmt.Errorf("failed to delete artwork: %w", err)
	}
	return expectAffected(res, ErrArtworkNotFound)
}

func (r *artworkRepository) GetArtworkByID(ctx context.Context, id int64) (*models.Artwork, error) {
	artwork, err := scanArtwork(r.db.QueryRowContext(ctx, artworkSelect+" WHERE a.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtworkNotFound
		}
		return nil, err
	}
	return artwork, nil
}

// LockArtworkByIDTx читает только собственные поля работы, без агрегатов
func (r *artworkRepository) LockArtworkByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Artwork, error) {
	query := `
		SELECT id, artist_id, title, price, stock_quantity, is_available, is_verified
		FROM artworks
		WHERE id = $1
		FOR UPDATE`
	a := &models.Artwork{}
	err := tx.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.ArtistID, &a.Title, &a.Price, &a.StockQuantity, &a.IsAvailable, &a.IsVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtworkNotFound
		}
		return nil, lockErr(err)
	}
	return a, nil
}

// DecrementStock списывает остаток; при нуле работа снимается с продажи
func (r *artworkRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE artworks
		SET stock_quantity = stock_quantity - $1, is_available = (stock_quantity - $1) > 0, updated_at = NOW()
		WHERE id = $2 AND stock_quantity >= $1`, quantity, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	return expectAffected(res, ErrInsufficientStock)
}

func (r *artworkRepository) Restock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE artworks
		SET stock_quantity = stock_quantity + $1, is_available = TRUE, updated_at = NOW()
		WHERE id = $2`, quantity, id)
	if err != nil {
		return fmt.Errorf("failed to restock artwork: %w", err)
	}
	return expectAffected(res, ErrArtworkNotFound)
}

func (r *artworkRepository) ListArtworks(ctx context.Context, filter ArtworkFilter, page models.Page) ([]*models.Artwork, int, error) {
	page = page.Normalize()
	var wb whereBuilder
	if filter.Verified != nil {
		wb.add("a.is_verified = $%d", *filter.Verified)
	}
	if filter.Search != "" {
		wb.add("(a.title ILIKE $%[1]d OR a.description ILIKE $%[1]d OR a.tribe ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.Tribe != "" {
		wb.add("a.tribe ILIKE $%d", filter.Tribe)
	}
	if filter.Category != "" {
		wb.add("a.category ILIKE $%d", filter.Category)
	}
	if filter.ArtistID != nil {
		wb.add("a.artist_id = $%d", *filter.ArtistID)
	}
	if filter.MinPrice != nil {
		wb.add("a.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		wb.add("a.price <= $%d", *filter.MaxPrice)
	}
	if filter.InStock {
		wb.addRaw("a.is_available AND a.stock_quantity > 0")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artworks a"+wb.sql(), wb.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count artworks: %w", err)
	}

	order, ok := artworkOrder[filter.Sort]
	if !ok {
		order = artworkOrder[SortNewest]
	}
	limit, args := wb.limitOffset(page.Limit, page.Offset())
	rows, err := r.db.QueryContext(ctx, artworkSelect+wb.sql()+order+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query artworks: %w", err)
	}
	defer rows.Close()

	artworks := make([]*models.Artwork, 0, page.Limit)
	for rows.Next() {
		artwork, err := scanArtwork(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan artwork: %w", err)
		}
		artworks = append(artworks, artwork)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return artworks, total, nil
}

func (r *artworkRepository) SetVerified(ctx context.Context, id int64, verified bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE artworks SET is_verified = $1, updated_at = NOW() WHERE id = $2", verified, id)
	if err != nil {
		return fmt.Errorf("failed to verify artwork: %w", err)
	}
	return expectAffected(res, ErrArtworkNotFound)
}

func (r *artworkRepository) CountVerification(ctx context.Context) (int, int, error) {
	var verified, pending int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FILTER (WHERE is_verified), COUNT(*) FILTER (WHERE NOT is_verified) FROM artworks",
	).Scan(&verified, &pending)
	if err != nil {
		return 0, 0, err
	}
	return verified, pending, nil
}
