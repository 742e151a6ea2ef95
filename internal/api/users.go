package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"courseshare/internal/db"
	"courseshare/internal/models"
	"courseshare/internal/publicid"
)

// avatarURLTemplate renders a placeholder image for the user's initial.
const avatarURLTemplate = "https://ui-avatars.com/api/?name=%s&size=128&background=random"

type UserHandler struct {
	users     *db.UserRepository
	publicIDs *publicid.Codec
}

func NewUserHandler(users *db.UserRepository, publicIDs *publicid.Codec) *UserHandler {
	return &UserHandler{users: users, publicIDs: publicIDs}
}

// GET /api/users/{encodedId}/avatar
//
// The placeholder URL is templated with the first-name initial, falling
// back to the email initial when the profile has no name.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := h.publicIDs.Decode(publicid.Public(chi.URLParam(r, "encodedId")))
	if err != nil {
		badRequest(w, "Invalid user id")
		return
	}

	user, err := h.users.FindActiveByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user for avatar", "error", err, "user_id", int64(id))
		internalError(w)
		return
	}

	firstName := ""
	if user.Profile != nil {
		firstName = user.Profile.FirstName
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"avatarUrl": fmt.Sprintf(avatarURLTemplate, url.QueryEscape(user.AvatarInitial())),
		"user": map[string]any{
			"id":        string(h.publicIDs.MustEncode(id)),
			"email":     user.Email,
			"firstName": firstName,
		},
	})
}

func userListView(codec *publicid.Codec, users []*models.User) []*models.User {
	for _, u := range users {
		u.PublicID = string(codec.MustEncode(publicid.ID(u.ID)))
	}
	return users
}
