package api

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/microcosm-cc/bluemonday"

	"courseshare/internal/auth"
	"courseshare/internal/db"
	"courseshare/internal/legal"
	"courseshare/internal/models"
	"courseshare/internal/publicid"
)

//go:embed templates/*.html
var templateFS embed.FS

// signInErrors maps magic-link failure codes to the message shown on
// the sign-in page.
var signInErrors = map[string]string{
	magicErrNoToken:     "The sign-in link is missing its token. Request a new one.",
	magicErrInvalid:     "That sign-in link is invalid or has expired. Request a new one.",
	magicErrInvalidType: "That link cannot be used to sign in. Request a new one.",
	magicErrNoUser:      "No account matches that sign-in link.",
	magicErrAuthFailed:  "Something went wrong signing you in. Please try again.",
}

type PageHandler struct {
	templates  *template.Template
	resolver   *auth.Resolver
	users      *db.UserRepository
	shares     *db.ShareRepository
	legalDocs  *legal.Library
	publicIDs  *publicid.Codec
	sanitizer  *bluemonday.Policy
	serverName string
}

func NewPageHandler(
	resolver *auth.Resolver,
	users *db.UserRepository,
	shares *db.ShareRepository,
	legalDocs *legal.Library,
	publicIDs *publicid.Codec,
	serverName string,
) (*PageHandler, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates:  templates,
		resolver:   resolver,
		users:      users,
		shares:     shares,
		legalDocs:  legalDocs,
		publicIDs:  publicIDs,
		sanitizer:  bluemonday.UGCPolicy(),
		serverName: serverName,
	}, nil
}

type pageData struct {
	ServerName string
	User       *models.User
	Error      string
	Token      string
	Doc        *legal.Document
	Shared     *sharedView
	Users      []*models.User
}

type sharedView struct {
	Title           string
	DescriptionHTML template.HTML
	SharedAt        string
}

// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	user, _ := h.resolver.CurrentUser(w, r)
	h.render(w, "home.html", pageData{ServerName: h.serverName, User: user})
}

// GET /auth/signin
func (h *PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	data := pageData{ServerName: h.serverName}
	if code := r.URL.Query().Get("error"); code != "" {
		msg, ok := signInErrors[code]
		if !ok {
			msg = "Sign-in failed. Please try again."
		}
		data.Error = msg
	}
	h.render(w, "signin.html", data)
}

// GET /auth/reset?token=
func (h *PageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.render(w, "reset.html", pageData{
		ServerName: h.serverName,
		Token:      r.URL.Query().Get("token"),
	})
}

// GET /shared?cid=
func (h *PageHandler) Shared(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("cid")
	if cid == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	shared, err := h.shares.FindByToken(r.Context(), cid)
	if errors.Is(err, db.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("error loading shared course page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var payload struct {
		Title           string `json:"title"`
		DescriptionHTML string `json:"descriptionHtml"`
	}
	if err := json.Unmarshal([]byte(shared.Payload), &payload); err != nil {
		slog.Error("error decoding shared course payload", "error", err, "share_id", shared.ID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user, _ := h.resolver.CurrentUser(w, r)
	h.render(w, "shared.html", pageData{
		ServerName: h.serverName,
		User:       user,
		Shared: &sharedView{
			Title:           payload.Title,
			DescriptionHTML: template.HTML(h.sanitizer.Sanitize(payload.DescriptionHTML)),
			SharedAt:        shared.CreatedAt.UTC().Format("January 2, 2006"),
		},
	})
}

// GET /legal/{slug}
func (h *PageHandler) Legal(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := h.legalDocs.Get(slug)
		if !ok {
			http.NotFound(w, r)
			return
		}
		user, _ := h.resolver.CurrentUser(w, r)
		h.render(w, "legal.html", pageData{ServerName: h.serverName, User: user, Doc: doc})
	}
}

// GET /admin, guarded by RequirePageRole("admin") in the router.
func (h *PageHandler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		slog.Error("error listing users for admin page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, "admin.html", pageData{
		ServerName: h.serverName,
		User:       CurrentUser(r),
		Users:      userListView(h.publicIDs, users),
	})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("error rendering page", "template", name, "error", err)
	}
}
