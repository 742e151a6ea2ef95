package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"courseshare/internal/db"
	"courseshare/internal/publicid"
	"courseshare/internal/share"
)

type CourseHandler struct {
	courses   *db.CourseRepository
	shares    *db.ShareRepository
	publicIDs *publicid.Codec
	sanitizer *bluemonday.Policy
	appURL    string
}

func NewCourseHandler(courses *db.CourseRepository, shares *db.ShareRepository, publicIDs *publicid.Codec, appURL string) *CourseHandler {
	return &CourseHandler{
		courses:   courses,
		shares:    shares,
		publicIDs: publicIDs,
		sanitizer: bluemonday.UGCPolicy(),
		appURL:    appURL,
	}
}

type ShareCourseRequest struct {
	CourseID   string          `json:"courseId" validate:"required,max=64"`
	CourseData json.RawMessage `json:"courseData" validate:"required"`
}

// POST /api/courses/share, behind RequireUser. Only the owner of an
// active course may share it.
//
// The courseId arrives in its obfuscated public form and locates the
// row; the minted share identifier is unrelated to either form, so a
// share link can never be reversed to an internal key.
func (h *CourseHandler) Share(w http.ResponseWriter, r *http.Request) {
	caller := CurrentUser(r)
	if caller == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req ShareCourseRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	courseID, err := h.publicIDs.Decode(publicid.Public(req.CourseID))
	if err != nil {
		badRequest(w, "Invalid course id")
		return
	}

	course, err := h.courses.FindActiveByID(r.Context(), courseID)
	if errors.Is(err, db.ErrNotFound) {
		badRequest(w, "Unknown course")
		return
	}
	if err != nil {
		slog.Error("error finding course to share", "error", err, "course_id", int64(courseID))
		internalError(w)
		return
	}

	if course.OwnerID != caller.ID {
		unauthorized(w, "You do not own this course")
		return
	}

	payload, err := h.sanitizePayload(req.CourseData)
	if err != nil {
		badRequest(w, "Invalid course data")
		return
	}

	shareToken, err := share.NewToken()
	if err != nil {
		slog.Error("error minting share token", "error", err)
		internalError(w)
		return
	}

	shared, err := h.shares.Create(r.Context(), course.ID, shareToken, payload)
	if err != nil {
		slog.Error("error storing shared course", "error", err, "course_id", course.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"sharedCourseId": shared.ShareToken,
		"shareUrl":       h.appURL + "/shared?cid=" + url.QueryEscape(shared.ShareToken),
	})
}

// sanitizePayload scrubs the HTML-bearing fields of a course snapshot
// before it is stored. The shared page sanitizes again at render time,
// but a stored snapshot should already be clean.
func (h *CourseHandler) sanitizePayload(raw json.RawMessage) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}

	if html, ok := payload["descriptionHtml"].(string); ok {
		payload["descriptionHtml"] = h.sanitizer.Sanitize(html)
	}

	clean, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(clean), nil
}

// GET /api/courses/shared?cid=
func (h *CourseHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("cid")
	if cid == "" {
		badRequest(w, "cid is required")
		return
	}

	shared, err := h.shares.FindByToken(r.Context(), cid)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Shared course not found")
		return
	}
	if err != nil {
		slog.Error("error finding shared course", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"course":   json.RawMessage(shared.Payload),
		"sharedAt": shared.CreatedAt.UTC().Format(time.RFC3339),
	})
}
