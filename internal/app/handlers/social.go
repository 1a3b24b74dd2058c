package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/service"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ListReviewsHandler GET /api/artworks/{id}/reviews
func ListReviewsHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListReviewsHandler"
		logger := log.With(slog.String("op", op))

		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		reviews, total, err := reviewService.List(r.Context(), id, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, reviews, page, total)
	}
}

func CreateReviewHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateReviewHandler"
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
		var req ReviewRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		review, err := reviewService.Create(r.Context(), act.UserID, id, req.Rating, req.Comment)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, review)
	}
}

func ListFavoritesHandler(log *slog.Logger, favoriteService service.FavoriteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListFavoritesHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		favorites, err := favoriteService.List(r.Context(), act.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, favorites)
	}
}

// AddFavoriteHandler POST /api/favorites/{artworkID}; повторный вызов ничего не меняет
func AddFavoriteHandler(log *slog.Logger, favoriteService service.FavoriteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddFavoriteHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		artworkID, err := idParam(r, "artworkID")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := favoriteService.Add(r.Context(), act.UserID, artworkID); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]int64{"artwork_id": artworkID})
	}
}

func RemoveFavoriteHandler(log *slog.Logger, favoriteService service.FavoriteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFavoriteHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		artworkID, err := idParam(r, "artworkID")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := favoriteService.Remove(r.Context(), act.UserID, artworkID); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]int64{"artwork_id": artworkID})
	}
}
