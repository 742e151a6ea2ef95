package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"courseshare/internal/auth"
	"courseshare/internal/db"
	"courseshare/internal/publicid"
	"courseshare/internal/token"
)

type AdminHandler struct {
	users        *db.UserRepository
	resolver     *auth.Resolver
	tokens       *token.Codec
	publicIDs    *publicid.Codec
	emailService EmailSender
	appURL       string
	resetTTL     time.Duration
}

func NewAdminHandler(
	users *db.UserRepository,
	resolver *auth.Resolver,
	tokens *token.Codec,
	publicIDs *publicid.Codec,
	emailService EmailSender,
	appURL string,
	resetTTL time.Duration,
) *AdminHandler {
	return &AdminHandler{
		users:        users,
		resolver:     resolver,
		tokens:       tokens,
		publicIDs:    publicIDs,
		emailService: emailService,
		appURL:       appURL,
		resetTTL:     resetTTL,
	}
}

// POST /api/admin/users/{encodedId}/reset-password
//
// The admin privilege is checked on the caller, not the target: an
// admin resets any user's password by mailing them a reset-purpose
// token. Both a missing session and a session without the admin role
// answer 401; this endpoint's contract does not use 403.
func (h *AdminHandler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.resolver.CurrentUser(w, r)
	if !ok {
		unauthorized(w, "Authentication required")
		return
	}

	isAdmin, err := h.resolver.IsAdmin(r.Context(), publicid.ID(caller.ID))
	if err != nil {
		slog.Error("error checking admin role", "error", err, "user_id", caller.ID)
		internalError(w)
		return
	}
	if !isAdmin {
		unauthorized(w, "Admin privilege required")
		return
	}

	targetID, err := h.publicIDs.Decode(publicid.Public(chi.URLParam(r, "encodedId")))
	if err != nil {
		badRequest(w, "Invalid user id")
		return
	}

	target, err := h.users.FindActiveByID(r.Context(), targetID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "User not found")
		return
	}
	if err != nil {
		slog.Error("error finding user for password reset", "error", err, "user_id", int64(targetID))
		internalError(w)
		return
	}

	signed, err := h.tokens.Generate(targetID, token.PurposeReset)
	if err != nil {
		slog.Error("error generating reset token", "error", err, "user_id", target.ID)
		internalError(w)
		return
	}

	link := h.appURL + "/auth/reset?token=" + url.QueryEscape(signed)
	if err := h.emailService.SendPasswordReset(target.Email, link, h.resetTTL); err != nil {
		slog.Error("error sending reset email", "error", err, "user_id", target.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset email sent",
	})
}
