package models

import "time"

// Artist профиль художника, один к одному с пользователем
type Artist struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Name          string     `json:"name"` // заполняется через JOIN с users
	Tribe         string     `json:"tribe"`
	Location      string     `json:"location"`
	Bio           string     `json:"bio"`
	IsVerified    bool       `json:"is_verified"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	TotalSales    int        `json:"total_sales"`
	TotalArtworks int        `json:"total_artworks"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
