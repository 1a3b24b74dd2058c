package models

import "github.com/shopspring/decimal"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page параметры пагинации
type Page struct {
	Page  int
	Limit int
}

// Normalize приводит параметры к допустимым значениям
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Stats сводка для админ-панели
type Stats struct {
	UsersByRole      map[Role]int        `json:"users_by_role"`
	VerifiedArtists  int                 `json:"verified_artists"`
	PendingArtists   int                 `json:"pending_artists"`
	VerifiedArtworks int                 `json:"verified_artworks"`
	PendingArtworks  int                 `json:"pending_artworks"`
	OrdersByStatus   map[OrderStatus]int `json:"orders_by_status"`
	Revenue          decimal.Decimal     `json:"revenue"`
}
