package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"courseshare/internal/publicid"
	"courseshare/internal/session"
	"courseshare/internal/token"
)

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge >= 0 && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestSignInSuccess(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice@example.com", "correct horse", "Alice")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"alice@example.com","password":"correct horse"}`))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}
	if sessionCookieFrom(rr) == nil {
		t.Fatal("no session cookie set on sign-in")
	}

	var resp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	if resp.User.Email != "alice@example.com" {
		t.Fatalf("email = %q", resp.User.Email)
	}
	if _, err := ts.publicIDs.Decode(publicid.Public(resp.User.ID)); err != nil {
		t.Fatalf("user id %q is not a valid public id: %v", resp.User.ID, err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice@example.com", "correct horse", "Alice")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMeWithoutSession(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMeReturnsEncodedID(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw-not-needed", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(ts.sessionCookie(t, user.ID))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.ID == "1" {
		t.Fatal("raw numeric id leaked into API response")
	}
	if resp.ID != ts.encodeID(t, user.ID) {
		t.Fatalf("id = %q, want %q", resp.ID, ts.encodeID(t, user.ID))
	}
}

func TestMeWithResetTokenCookieRejected(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw", "Alice")

	signed, err := ts.tokens.Generate(publicid.ID(user.ID), token.PurposeReset)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: signed})
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d (reset token must not act as session)", rr.Code, http.StatusUnauthorized)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw", "Alice")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.AddCookie(ts.sessionCookie(t, user.ID))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared on sign-out")
	}
}

func magicLinkLocation(t *testing.T, ts *testServer, target string) *url.URL {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d (magic link must always redirect)", rr.Code, http.StatusFound)
	}

	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	return loc
}

func TestMagicLinkMissingToken(t *testing.T) {
	ts := newTestServer(t)

	loc := magicLinkLocation(t, ts, "/api/auth/magic-link")
	if loc.Path != "/auth/signin" || loc.Query().Get("error") != "no_token" {
		t.Fatalf("Location = %q", loc.String())
	}
}

func TestMagicLinkGarbageToken(t *testing.T) {
	ts := newTestServer(t)

	loc := magicLinkLocation(t, ts, "/api/auth/magic-link?token=garbage")
	if loc.Path != "/auth/signin" || loc.Query().Get("error") != "invalid_token" {
		t.Fatalf("Location = %q", loc.String())
	}
}

func TestMagicLinkWrongPurpose(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw", "Alice")

	for _, purpose := range []token.Purpose{token.PurposeSession, token.PurposeReset} {
		signed, err := ts.tokens.Generate(publicid.ID(user.ID), purpose)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		loc := magicLinkLocation(t, ts, "/api/auth/magic-link?token="+url.QueryEscape(signed))
		if loc.Query().Get("error") != "invalid_token_type" {
			t.Fatalf("purpose %s: Location = %q, want invalid_token_type", purpose, loc.String())
		}
	}
}

func TestMagicLinkUnknownUser(t *testing.T) {
	ts := newTestServer(t)

	signed, err := ts.tokens.Generate(9999, token.PurposeMagicLink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	loc := magicLinkLocation(t, ts, "/api/auth/magic-link?token="+url.QueryEscape(signed))
	if loc.Query().Get("error") != "user_not_found" {
		t.Fatalf("Location = %q, want user_not_found", loc.String())
	}
}

func TestMagicLinkSuccess(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw", "Alice")

	signed, err := ts.tokens.Generate(publicid.ID(user.ID), token.PurposeMagicLink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/auth/magic-link?token="+url.QueryEscape(signed)+"&redirect=%2Fshared%3Fcid%3Dabc", nil)
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/shared?cid=abc" {
		t.Fatalf("Location = %q", got)
	}
	if sessionCookieFrom(rr) == nil {
		t.Fatal("no session cookie set by magic link")
	}
}

func TestMagicLinkRejectsAbsoluteRedirect(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "pw", "Alice")

	signed, err := ts.tokens.Generate(publicid.ID(user.ID), token.PurposeMagicLink)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, redirect := range []string{"https://evil.example", "//evil.example"} {
		req := httptest.NewRequest(http.MethodGet,
			"/api/auth/magic-link?token="+url.QueryEscape(signed)+"&redirect="+url.QueryEscape(redirect), nil)
		rr := httptest.NewRecorder()
		ts.server.ServeHTTP(rr, req)

		if got := rr.Header().Get("Location"); got != "/" {
			t.Fatalf("redirect %q: Location = %q, want /", redirect, got)
		}
	}
}

func TestRequestMagicLinkIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice@example.com", "pw", "Alice")

	for _, email := range []string{"alice@example.com", "stranger@example.com"} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/magic-link/request",
			strings.NewReader(`{"email":"`+email+`"}`))
		rr := httptest.NewRecorder()
		ts.server.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("email %q: status = %d, want %d", email, rr.Code, http.StatusOK)
		}
	}

	// Only the real account got an email, and its link carries a
	// verifiable magic-link token.
	if len(ts.email.MagicLinks) != 1 {
		t.Fatalf("magic link emails sent = %d, want 1", len(ts.email.MagicLinks))
	}
	sent := ts.email.MagicLinks[0]
	if sent.To != "alice@example.com" {
		t.Fatalf("email to = %q", sent.To)
	}

	link, err := url.Parse(sent.Link)
	if err != nil {
		t.Fatalf("parsing link: %v", err)
	}
	claims, err := ts.tokens.Verify(link.Query().Get("token"))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Purpose != token.PurposeMagicLink {
		t.Fatalf("purpose = %s, want %s", claims.Purpose, token.PurposeMagicLink)
	}
}

func TestResetPasswordRejectsWrongPurpose(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "old password", "Alice")

	for _, purpose := range []token.Purpose{token.PurposeSession, token.PurposeMagicLink} {
		signed, err := ts.tokens.Generate(publicid.ID(user.ID), purpose)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
			strings.NewReader(`{"token":"`+signed+`","password":"a new password"}`))
		rr := httptest.NewRecorder()
		ts.server.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("purpose %s: status = %d, want %d", purpose, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestResetPasswordRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice@example.com", "old password", "Alice")

	signed, err := ts.tokens.Generate(publicid.ID(user.ID), token.PurposeReset)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
		strings.NewReader(`{"token":"`+signed+`","password":"a new password"}`))
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	// The new password signs in, the old one no longer does.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"alice@example.com","password":"a new password"}`))
	rr = httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("sign-in with new password: status = %d, want %d", rr.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"alice@example.com","password":"old password"}`))
	rr = httptest.NewRecorder()
	ts.server.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("sign-in with old password: status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
