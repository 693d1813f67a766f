// Package users implements the public user-profile lookup endpoint.
package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/api/apiutil"
	"github.com/amityvox/amityvox/internal/models"
)

// Handler implements the user-related REST API endpoints.
type Handler struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// HandleGetProfile handles GET /users/{id}, returning the public profile of
// any user regardless of shared community membership — usernames and
// primary languages are not considered sensitive in this system.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_user_id", "user id is required")
		return
	}

	var u models.User
	err := h.Pool.QueryRow(r.Context(),
		`SELECT id, username, primary_language, avatar, status, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Username, &u.PrimaryLanguage, &u.Avatar, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		apiutil.WriteError(w, http.StatusNotFound, "user_not_found", "No such user")
		return
	}
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading user profile", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, u.ToPublicProfile())
}
