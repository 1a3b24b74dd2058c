package models

import "time"

type Review struct {
	ID        int64     `json:"id"`
	ArtworkID int64     `json:"artwork_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Favorite struct {
	UserID    int64     `json:"user_id"`
	ArtworkID int64     `json:"artwork_id"`
	Artwork   *Artwork  `json:"artwork,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem позиция корзины; Artwork заполняется при чтении корзины
type CartItem struct {
	UserID    int64     `json:"user_id"`
	ArtworkID int64     `json:"artwork_id"`
	Quantity  int       `json:"quantity"`
	Artwork   *Artwork  `json:"artwork,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
