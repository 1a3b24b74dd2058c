package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/linemk/tribal-market/internal/service"
	"github.com/linemk/tribal-market/internal/storage"
)

type ArtworkRequest struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=5000"`
	Tribe         string          `json:"tribe" validate:"required,max=100"`
	Category      string          `json:"category" validate:"required,max=100"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	ImageURLs     []string        `json:"image_urls" validate:"max=10,dive,url"`
}

func (req ArtworkRequest) input() service.ArtworkInput {
	return service.ArtworkInput{
		Title:         req.Title,
		Description:   req.Description,
		Tribe:         req.Tribe,
		Category:      req.Category,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURLs:     req.ImageURLs,
	}
}

// artworkFilter разбирает параметры каталога из query
func artworkFilter(r *http.Request) (storage.ArtworkFilter, error) {
	q := r.URL.Query()
	filter := storage.ArtworkFilter{
		Search:   q.Get("search"),
		Tribe:    q.Get("tribe"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}

	switch filter.Sort {
	case "", storage.SortNewest, storage.SortPriceAsc, storage.SortPriceDesc:
	default:
		return filter, errors.New("invalid sort")
	}
	if raw := q.Get("artist_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid artist_id")
		}
		filter.ArtistID = &id
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			return filter, errors.New("invalid " + name)
		}
		*dst = &v
	}
	inStock, err := boolParam(r, "in_stock")
	if err != nil {
		return filter, err
	}
	filter.InStock = inStock != nil && *inStock
	return filter, nil
}

// ListArtworksHandler GET /api/artworks: публичный каталог
func ListArtworksHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListArtworksHandler"
		logger := log.With(slog.String("op", op))

		filter, err := artworkFilter(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		artworks, total, err := artworkService.Browse(r.Context(), filter, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, artworks, page, total)
	}
}

// GetArtworkHandler GET /api/artworks/{id}; непроверенную работу видят только автор и администратор
func GetArtworkHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetArtworkHandler"
		logger := log.With(slog.String("op", op))

		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		act, _ := actor(r)

		artwork, err := artworkService.Get(r.Context(), act, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artwork)
	}
}

func CreateArtworkHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateArtworkHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req ArtworkRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artwork, err := artworkService.Create(r.Context(), act, req.input())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, artwork)
	}
}

func UpdateArtworkHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateArtworkHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		var req ArtworkRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artwork, err := artworkService.Update(r.Context(), act, id, req.input())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artwork)
	}
}

func DeleteArtworkHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteArtworkHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := artworkService.Delete(r.Context(), act, id); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]int64{"deleted": id})
	}
}

// MyArtworksHandler GET /api/artists/me/artworks: все работы художника, включая непроверенные
func MyArtworksHandler(log *slog.Logger, artworkService service.ArtworkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyArtworksHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		page := pageParams(r)

		artworks, total, err := artworkService.ListMine(r.Context(), act, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, artworks, page, total)
	}
}
