package api

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"courseshare/internal/auth"
	"courseshare/internal/config"
	"courseshare/internal/db"
	"courseshare/internal/models"
	"courseshare/internal/publicid"
	"courseshare/internal/session"
	"courseshare/internal/token"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testAppURL = "http://localhost:3000"
)

type sentEmail struct {
	To   string
	Link string
}

type fakeEmailSender struct {
	Resets     []sentEmail
	MagicLinks []sentEmail
	Err        error
}

func (f *fakeEmailSender) SendPasswordReset(to, link string, ttl time.Duration) error {
	if f.Err != nil {
		return f.Err
	}
	f.Resets = append(f.Resets, sentEmail{To: to, Link: link})
	return nil
}

func (f *fakeEmailSender) SendMagicLink(to, link string, ttl time.Duration) error {
	if f.Err != nil {
		return f.Err
	}
	f.MagicLinks = append(f.MagicLinks, sentEmail{To: to, Link: link})
	return nil
}

type testServer struct {
	server    *Server
	users     *db.UserRepository
	roles     *db.RoleRepository
	courses   *db.CourseRepository
	tokens    *token.Codec
	publicIDs *publicid.Codec
	email     *fakeEmailSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Name = "Courseshare Test"
	cfg.Server.AppURL = testAppURL
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.SessionTTL = time.Hour
	cfg.Auth.ResetTTL = time.Hour
	cfg.Auth.MagicLinkTTL = time.Hour

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	emailSender := &fakeEmailSender{}
	server, err := NewServer(cfg, database, emailSender)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	publicIDs, err := publicid.NewCodec()
	if err != nil {
		t.Fatalf("publicid.NewCodec() error = %v", err)
	}

	return &testServer{
		server:    server,
		users:     db.NewUserRepository(database),
		roles:     db.NewRoleRepository(database),
		courses:   db.NewCourseRepository(database),
		tokens:    token.NewCodec(testSecret, time.Hour, time.Hour, time.Hour),
		publicIDs: publicIDs,
		email:     emailSender,
	}
}

func (ts *testServer) createUser(t *testing.T, email, password, firstName string) *models.User {
	t.Helper()

	hash := ""
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
		}
		hash = string(hashed)
	}

	user, err := ts.users.Create(context.Background(), email, hash, firstName)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user
}

func (ts *testServer) makeAdmin(t *testing.T, user *models.User) {
	t.Helper()
	if err := ts.roles.Grant(context.Background(), publicid.ID(user.ID), auth.RoleAdmin); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
}

func (ts *testServer) sessionCookie(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	signed, err := ts.tokens.Generate(publicid.ID(userID), token.PurposeSession)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: signed}
}

func (ts *testServer) encodeID(t *testing.T, id int64) string {
	t.Helper()
	encoded, err := ts.publicIDs.Encode(publicid.ID(id))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return string(encoded)
}
