package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/service"
)

type ArtistProfileRequest struct {
	Tribe    string `json:"tribe" validate:"required,max=100"`
	Location string `json:"location" validate:"max=200"`
	Bio      string `json:"bio" validate:"max=5000"`
}

func (req ArtistProfileRequest) input() service.ArtistProfileInput {
	return service.ArtistProfileInput{Tribe: req.Tribe, Location: req.Location, Bio: req.Bio}
}

// CreateArtistProfileHandler POST /api/artists/profile
func CreateArtistProfileHandler(log *slog.Logger, artistService service.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateArtistProfileHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req ArtistProfileRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artist, err := artistService.CreateProfile(r.Context(), act, req.input())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, artist)
	}
}

// UpdateArtistProfileHandler PUT /api/artists/profile
func UpdateArtistProfileHandler(log *slog.Logger, artistService service.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateArtistProfileHandler"
		logger := log.With(slog.String("op", op))

		act, ok := actor(r)
		if !ok {
			writeFail(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req ArtistProfileRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artist, err := artistService.UpdateProfile(r.Context(), act, req.input())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artist)
	}
}

// ListArtistsHandler GET /api/artists?tribe=&search=
func ListArtistsHandler(log *slog.Logger, artistService service.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListArtistsHandler"
		logger := log.With(slog.String("op", op))

		page := pageParams(r)
		q := r.URL.Query()
		artists, total, err := artistService.ListVerified(r.Context(), q.Get("tribe"), q.Get("search"), page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, artists, page, total)
	}
}

func GetArtistHandler(log *slog.Logger, artistService service.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetArtistHandler"
		logger := log.With(slog.String("op", op))

		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		act, _ := actor(r)

		artist, err := artistService.Get(r.Context(), act, id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artist)
	}
}
