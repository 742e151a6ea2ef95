package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type avatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
	User      struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
	} `json:"user"`
}

func getAvatar(ts *testServer, encodedID string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/"+encodedID+"/avatar", nil))
	return rr
}

func TestGetAvatarInvalidID(t *testing.T) {
	ts := newTestServer(t)

	rr := getAvatar(ts, "definitely-not-valid")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetAvatarUnknownUser(t *testing.T) {
	ts := newTestServer(t)

	rr := getAvatar(ts, ts.encodeID(t, 4242))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetAvatarUsesFirstNameInitial(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "anna@example.com", "pw", "anna")

	rr := getAvatar(ts, ts.encodeID(t, user.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp avatarResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(resp.AvatarURL, "name=A") {
		t.Fatalf("avatarUrl = %q, want uppercased first-name initial", resp.AvatarURL)
	}
	if resp.User.Email != "anna@example.com" {
		t.Fatalf("email = %q", resp.User.Email)
	}
	if resp.User.FirstName != "anna" {
		t.Fatalf("firstName = %q", resp.User.FirstName)
	}
	if resp.User.ID != ts.encodeID(t, user.ID) {
		t.Fatalf("id = %q, want encoded form %q", resp.User.ID, ts.encodeID(t, user.ID))
	}
}

func TestGetAvatarFallsBackToEmailInitial(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "zoe@example.com", "pw", "")

	rr := getAvatar(ts, ts.encodeID(t, user.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp avatarResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(resp.AvatarURL, "name=Z") {
		t.Fatalf("avatarUrl = %q, want email initial fallback", resp.AvatarURL)
	}
}
