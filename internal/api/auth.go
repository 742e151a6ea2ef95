package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"courseshare/internal/db"
	"courseshare/internal/models"
	"courseshare/internal/publicid"
	"courseshare/internal/session"
	"courseshare/internal/token"
)

// EmailSender is what the auth handlers need from the mail layer.
type EmailSender interface {
	SendPasswordReset(to, link string, ttl time.Duration) error
	SendMagicLink(to, link string, ttl time.Duration) error
}

// Magic-link failures are reported through the sign-in page query
// string, never as an error status. The link is opened from an email
// client, so a JSON body would be useless there.
const (
	magicErrNoToken     = "no_token"
	magicErrInvalid     = "invalid_token"
	magicErrInvalidType = "invalid_token_type"
	magicErrNoUser      = "user_not_found"
	magicErrAuthFailed  = "authentication_failed"
)

type AuthHandler struct {
	users        *db.UserRepository
	sessions     *session.Store
	tokens       *token.Codec
	publicIDs    *publicid.Codec
	emailService EmailSender
	appURL       string
	resetTTL     time.Duration
	magicLinkTTL time.Duration
}

func NewAuthHandler(
	users *db.UserRepository,
	sessions *session.Store,
	tokens *token.Codec,
	publicIDs *publicid.Codec,
	emailService EmailSender,
	appURL string,
	resetTTL time.Duration,
	magicLinkTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		publicIDs:    publicIDs,
		emailService: emailService,
		appURL:       appURL,
		resetTTL:     resetTTL,
		magicLinkTTL: magicLinkTTL,
	}
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.users.FindActiveByEmail(r.Context(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("error finding user for sign-in", "error", err)
		internalError(w)
		return
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password")
		return
	}

	if err := h.sessions.Write(w, publicid.ID(user.ID)); err != nil {
		slog.Error("error creating session", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	if err := h.users.TouchLastSignedIn(r.Context(), publicid.ID(user.ID)); err != nil {
		slog.Error("error recording sign-in time", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": h.userView(user)})
}

// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// GET /api/auth/me, behind RequireUser.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		unauthorized(w, "Not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, h.userView(user))
}

type MagicLinkRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Redirect string `json:"redirect,omitempty" validate:"omitempty,max=512"`
}

// POST /api/auth/magic-link/request
//
// Always answers 200 with a generic message so the endpoint cannot be
// used to probe which emails have accounts.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.users.FindActiveByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Error("error finding user for magic link", "error", err)
		}
	} else {
		signed, err := h.tokens.Generate(publicid.ID(user.ID), token.PurposeMagicLink)
		if err != nil {
			slog.Error("error generating magic link token", "error", err, "user_id", user.ID)
			internalError(w)
			return
		}

		link := h.appURL + "/api/auth/magic-link?token=" + url.QueryEscape(signed) +
			"&redirect=" + url.QueryEscape(sanitizeRedirect(req.Redirect))
		if err := h.emailService.SendMagicLink(user.Email, link, h.magicLinkTTL); err != nil {
			slog.Error("error sending magic link email", "error", err, "user_id", user.ID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists with this email, a sign-in link has been sent",
	})
}

// GET /api/auth/magic-link?token=&redirect=
//
// Arrives from an email client, so every outcome is a 302: success
// lands on the redirect target with a live session, every failure lands
// on the sign-in page with a distinct error code in the query string.
func (h *AuthHandler) ConsumeMagicLink(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		h.redirectSignInError(w, r, magicErrNoToken)
		return
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		h.redirectSignInError(w, r, magicErrInvalid)
		return
	}

	if claims.Purpose != token.PurposeMagicLink {
		h.redirectSignInError(w, r, magicErrInvalidType)
		return
	}

	user, err := h.users.FindActiveByID(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		h.redirectSignInError(w, r, magicErrNoUser)
		return
	}
	if err != nil {
		slog.Error("error loading user for magic link", "error", err, "user_id", int64(claims.UserID))
		h.redirectSignInError(w, r, magicErrAuthFailed)
		return
	}

	if err := h.sessions.Write(w, publicid.ID(user.ID)); err != nil {
		slog.Error("error creating session from magic link", "error", err, "user_id", user.ID)
		h.redirectSignInError(w, r, magicErrAuthFailed)
		return
	}

	if err := h.users.TouchLastSignedIn(r.Context(), publicid.ID(user.ID)); err != nil {
		slog.Error("error recording sign-in time", "error", err, "user_id", user.ID)
	}

	http.Redirect(w, r, sanitizeRedirect(r.URL.Query().Get("redirect")), http.StatusFound)
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// POST /api/auth/reset-password
//
// Consumes a reset-purpose token minted by an admin. A session or
// magic-link token presented here is rejected even though it carries
// the same signature scheme.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	claims, err := h.tokens.Verify(req.Token)
	if err != nil || claims.Purpose != token.PurposeReset {
		unauthorized(w, "Invalid or expired reset token")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	err = h.users.UpdatePassword(r.Context(), claims.UserID, string(hash))
	if errors.Is(err, db.ErrNotFound) {
		unauthorized(w, "Invalid or expired reset token")
		return
	}
	if err != nil {
		slog.Error("error updating password", "error", err, "user_id", int64(claims.UserID))
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated",
	})
}

func (h *AuthHandler) redirectSignInError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/auth/signin?error="+url.QueryEscape(code), http.StatusFound)
}

func (h *AuthHandler) userView(u *models.User) *models.User {
	u.PublicID = string(h.publicIDs.MustEncode(publicid.ID(u.ID)))
	return u
}

// sanitizeRedirect only allows same-site relative targets. Anything
// else falls back to the home page.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
