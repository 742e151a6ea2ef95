// Package auth resolves the authenticated user and answers role
// membership queries for a request.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"courseshare/internal/db"
	"courseshare/internal/models"
	"courseshare/internal/publicid"
	"courseshare/internal/session"
)

const RoleAdmin = "admin"

type Resolver struct {
	sessions *session.Store
	users    *db.UserRepository
	roles    *db.RoleRepository
}

func NewResolver(sessions *session.Store, users *db.UserRepository, roles *db.RoleRepository) *Resolver {
	return &Resolver{sessions: sessions, users: users, roles: roles}
}

func (r *Resolver) Sessions() *session.Store {
	return r.sessions
}

// CurrentUser resolves the session to an active user with profile and
// active roles. A missing or soft-deleted user and any persistence
// failure all demote the request to unauthenticated and clear the
// session; a stale cookie must never surface a 500 from a page render.
func (r *Resolver) CurrentUser(w http.ResponseWriter, req *http.Request) (*models.User, bool) {
	claims, ok := r.sessions.Read(w, req)
	if !ok {
		return nil, false
	}

	user, err := r.users.FindActiveByID(req.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			slog.Warn("session references missing or deleted user, clearing session", "user_id", int64(claims.UserID))
		} else {
			slog.Error("error loading session user, clearing session", "error", err, "user_id", int64(claims.UserID))
		}
		r.sessions.Clear(w)
		return nil, false
	}

	return user, true
}

func (r *Resolver) HasRole(ctx context.Context, userID publicid.ID, roleName string) (bool, error) {
	return r.roles.HasRole(ctx, userID, roleName)
}

func (r *Resolver) IsAdmin(ctx context.Context, userID publicid.ID) (bool, error) {
	return r.roles.HasRole(ctx, userID, RoleAdmin)
}
