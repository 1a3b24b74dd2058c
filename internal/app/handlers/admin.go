package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// VerifyRequest пустое тело означает verified=true
type VerifyRequest struct {
	Verified *bool `json:"verified"`
}

func (req VerifyRequest) value() bool {
	return req.Verified == nil || *req.Verified
}

func StatsHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StatsHandler"
		logger := log.With(slog.String("op", op))

		stats, err := adminService.Stats(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, stats)
	}
}

// AdminUsersHandler GET /api/admin/users?role=
func AdminUsersHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AdminUsersHandler"
		logger := log.With(slog.String("op", op))

		var role *models.Role
		if raw := r.URL.Query().Get("role"); raw != "" {
			v := models.Role(raw)
			role = &v
		}
		page := pageParams(r)

		users, total, err := adminService.ListUsers(r.Context(), role, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, users, page, total)
	}
}

// SetUserActiveHandler PATCH /api/admin/users/{id}/active
func SetUserActiveHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetUserActiveHandler"
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
		var req ActiveRequest
		if err := decodeBody(r, &req); err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		if err := adminService.SetUserActive(r.Context(), act, id, *req.Active); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
	}
}

func AdminArtistsHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AdminArtistsHandler"
		logger := log.With(slog.String("op", op))

		verified, err := boolParam(r, "verified")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		artists, total, err := adminService.ListArtists(r.Context(), verified, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, artists, page, total)
	}
}

// VerifyArtistHandler POST /api/admin/artists/{id}/verify
func VerifyArtistHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyArtistHandler"
		logger := log.With(slog.String("op", op))

		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		req, err := verifyRequest(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artist, err := adminService.VerifyArtist(r.Context(), id, req.value())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artist)
	}
}

func AdminArtworksHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AdminArtworksHandler"
		logger := log.With(slog.String("op", op))

		verified, err := boolParam(r, "verified")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		artworks, total, err := adminService.ListArtworks(r.Context(), verified, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, artworks, page, total)
	}
}

// VerifyArtworkHandler POST /api/admin/artworks/{id}/verify
func VerifyArtworkHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyArtworkHandler"
		logger := log.With(slog.String("op", op))

		id, err := idParam(r, "id")
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		req, err := verifyRequest(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		artwork, err := adminService.VerifyArtwork(r.Context(), id, req.value())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, artwork)
	}
}

func AdminOrdersHandler(log *slog.Logger, adminService service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AdminOrdersHandler"
		logger := log.With(slog.String("op", op))

		status, err := statusParam(r)
		if err != nil {
			writeFail(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		page := pageParams(r)

		orders, total, err := adminService.ListOrders(r.Context(), status, page)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeList(w, logger, orders, page, total)
	}
}

// verifyRequest тело необязательно
func verifyRequest(r *http.Request) (VerifyRequest, error) {
	var req VerifyRequest
	if r.ContentLength == 0 {
		return req, nil
	}
	err := decodeBody(r, &req)
	return req, err
}
