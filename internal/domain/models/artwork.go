package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Artwork представляет работу художника, выставленную на продажу
type Artwork struct {
	ID            int64           `json:"id"`
	ArtistID      int64           `json:"artist_id"`
	ArtistName    string          `json:"artist_name,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Tribe         string          `json:"tribe"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	IsVerified    bool            `json:"is_verified"`
	ImageURLs     []string        `json:"image_urls"`
	AvgRating     float64         `json:"avg_rating"`
	ReviewCount   int             `json:"review_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanFulfil проверяет, можно ли продать указанное количество
func (a *Artwork) CanFulfil(quantity int) bool {
	return a.IsAvailable && a.StockQuantity >= quantity
}
