package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

const cartSelect = `
		SELECT c.quantity, c.created_at, c.updated_at, a.id, a.artist_id, u.name, a.title, a.description, a.tribe,
		       a.category, a.price, a.stock_quantity, a.is_available, a.is_verified, a.image_urls,
		       0::float8, 0, a.created_at, a.updated_at
		FROM cart_items c
		JOIN artworks a ON a.id = c.artwork_id
		JOIN artists ar ON ar.id = a.artist_id
		JOIN users u ON u.id = ar.user_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, a.id`

type CartStorage interface {
	// UpsertItem добавляет позицию или заменяет количество существующей
	UpsertItem(ctx context.Context, userID, artworkID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, artworkID int64) error
	ListItems(ctx context.Context, userID int64) ([]*models.CartItem, error)
	ListItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error)
	ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) UpsertItem(ctx context.Context, userID, artworkID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, artwork_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, artwork_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		userID, artworkID, quantity)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return ErrArtworkNotFound
		}
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, artworkID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND artwork_id = $2", userID, artworkID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) ListItems(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartSelect, userID)
	if err != nil {
		return nil, err
	}
	return scanCartItems(rows, userID)
}

func (r *cartRepository) ListItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	rows, err := tx.QueryContext(ctx, cartSelect, userID)
	if err != nil {
		return nil, err
	}
	return scanCartItems(rows, userID)
}

func scanCartItems(rows *sql.Rows, userID int64) ([]*models.CartItem, error) {
	defer rows.Close()

	items := make([]*models.CartItem, 0)
	for rows.Next() {
		item := &models.CartItem{UserID: userID}
		artwork, err := scanArtwork(prefixScanner{row: rows, prefix: []any{&item.Quantity, &item.CreatedAt, &item.UpdatedAt}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.ArtworkID = artwork.ID
		item.Artwork = artwork
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
