// Package session persists the current session token in an HTTP-only
// cookie. All state lives in the signed token; nothing is stored
// server-side, so logout is simply deleting the cookie.
package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courseshare/internal/publicid"
	"courseshare/internal/token"
)

const CookieName = "courseshare_session"

type Store struct {
	codec  *token.Codec
	ttl    time.Duration
	secure bool
}

func NewStore(codec *token.Codec, sessionTTL time.Duration, secure bool) *Store {
	return &Store{codec: codec, ttl: sessionTTL, secure: secure}
}

// Read returns the verified session claims for the current request.
// "No cookie", "malformed token", and "expired token" all surface the
// same way: (nil, false). A cookie that is present but does not verify
// as a session token is proactively cleared so the client self-heals
// instead of resending garbage on every request.
func (s *Store) Read(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims, err := s.codec.Verify(cookie.Value)
	if err != nil {
		if errors.Is(err, token.ErrSubject) {
			// A verified token carrying a non-numeric subject means an
			// obfuscated public id leaked into a session at some point.
			// Never let that value near a database query.
			slog.Warn("session token has non-numeric subject, clearing session")
		}
		s.Clear(w)
		return nil, false
	}

	if claims.Purpose != token.PurposeSession {
		slog.Warn("cookie carries a non-session token, clearing session", "purpose", claims.Purpose)
		s.Clear(w)
		return nil, false
	}

	return claims, true
}

// Write installs a fresh session-purpose token as the active session.
func (s *Store) Write(w http.ResponseWriter, userID publicid.ID) error {
	signed, err := s.codec.Generate(userID, token.PurposeSession)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie. Used for logout and for self-healing
// when a corrupted or legacy token is detected.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
