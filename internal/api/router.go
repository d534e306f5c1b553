package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/bethelevents/assessor/internal/middleware"
	"github.com/bethelevents/assessor/internal/services"
	"github.com/bethelevents/assessor/internal/utils"
)

// Roles allowed on operator endpoints. Viewers may read results; only
// admins and closers issue forms or regenerate narratives.
var (
	readerRoles = []string{"admin", "closer", "viewer"}
	writerRoles = []string{"admin", "closer"}
)

// BuildInfo is reported by /health and /version.
type BuildInfo struct {
	Name      string
	Commit    string
	BuildTime string
}

type Router struct {
	forms     *services.FormService
	responses *services.ResponseService
	auth      *middleware.Authenticator
	info      BuildInfo
}

func NewRouter(forms *services.FormService, responses *services.ResponseService, auth *middleware.Authenticator, info BuildInfo) *Router {
	if info.Name == "" {
		info.Name = "Assessor API"
	}
	return &Router{forms: forms, responses: responses, auth: auth, info: info}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/disc-form", rt.handleLoadForm)
	mux.HandleFunc("POST /api/disc-form", rt.handleDiscFormPost)
	mux.Handle("POST /api/forms", middleware.RequireAuth(http.HandlerFunc(rt.handleIssueForm), writerRoles...))
	mux.Handle("GET /api/forms", middleware.RequireAuth(http.HandlerFunc(rt.handleFormLink), readerRoles...))
	mux.Handle("GET /api/assessments/{participantId}", middleware.RequireAuth(http.HandlerFunc(rt.handleAssessment), readerRoles...))
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /version", rt.handleVersion)
}

// Handler wraps mux with the standard middleware stack.
func (rt *Router) Handler(mux *http.ServeMux) http.Handler {
	return middleware.Chain(mux,
		middleware.SecureHeaders,
		middleware.CORS,
		middleware.NoStore,
		middleware.LocaleMiddleware,
		rt.auth.WithAuth,
	)
}

// GET /api/disc-form?token=... (aliases: code, identifier)
func (rt *Router) handleLoadForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identifier := strings.TrimSpace(firstNonEmpty(q.Get("identifier"), q.Get("code"), q.Get("token")))
	view, err := rt.responses.Load(r.Context(), identifier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loadFormResponse{
		Form:            formSummary{ID: view.FormID, ParticipantName: view.ParticipantName},
		Questions:       view.Questions,
		BlockSize:       view.BlockSize,
		AlreadyAnswered: view.AlreadyAnswered,
		Archetypes:      view.Archetypes,
	})
}

// POST /api/disc-form: submit, or {action: "reprocess"} for operators.
func (rt *Router) handleDiscFormPost(w http.ResponseWriter, r *http.Request) {
	var req discFormRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Action == actionReprocess {
		rt.handleReprocess(w, r, &req)
		return
	}
	if req.Action != "" {
		writeError(w, r, services.NewInvalidError("error.invalid_request"))
		return
	}

	sub, err := req.submitRequest()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.responses.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, Archetypes: view})
}

func (rt *Router) handleReprocess(w http.ResponseWriter, r *http.Request, req *discFormRequest) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, services.NewUnauthorizedError())
		return
	}
	if !slices.Contains(writerRoles, c.Role) {
		writeError(w, r, services.NewForbiddenError())
		return
	}
	target, err := req.reprocessTarget()
	if err != nil {
		writeError(w, r, err)
		return
	}
	var res *services.ReprocessResult
	if target.ParticipantID != "" {
		res, err = rt.responses.ReprocessParticipant(r.Context(), target.ParticipantID)
	} else {
		res, err = rt.responses.Reprocess(r.Context(), target.Identifier)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("reprocess requested", "operator", c.UID, "participant_id", target.ParticipantID, "degraded", res.Degraded)
	writeJSON(w, http.StatusOK, res)
}

// POST /api/forms {participantId}
func (rt *Router) handleIssueForm(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if err := validate.Struct(req); err != nil {
		writeError(w, r, services.NewInvalidError("error.participant_needed"))
		return
	}
	f, err := rt.forms.Issue(r.Context(), req.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	link, err := rt.forms.Link(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// GET /api/forms?participantId=...
func (rt *Router) handleFormLink(w http.ResponseWriter, r *http.Request) {
	f, err := rt.forms.FormFor(r.Context(), r.URL.Query().Get("participantId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	link, err := rt.forms.Link(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// GET /api/assessments/{participantId}
func (rt *Router) handleAssessment(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("participantId")
	view, internal, err := rt.responses.Present(r.Context(), middleware.RoleFromContext(r.Context()), pid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	visibility := "participant"
	if internal {
		visibility = "internal"
	}
	writeJSON(w, http.StatusOK, assessmentResponse{ParticipantID: pid, Visibility: visibility, Result: view})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"name":      rt.info.Name,
		"locale":    locale,
		"msg":       utils.T(locale, "health.ok"),
		"commit":    rt.info.Commit,
		"buildTime": rt.info.BuildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commit":    rt.info.Commit,
		"buildTime": rt.info.BuildTime,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return services.NewInvalidError("error.invalid_request")
	}
	return nil
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid, services.ErrorAlreadyAnswered:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorExpired:
		return http.StatusGone
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	se, ok := services.AsServiceError(err)
	if !ok || statusFor(se.Code) == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": utils.T(locale, "error.internal")})
		return
	}
	writeJSON(w, statusFor(se.Code), map[string]string{"error": utils.T(locale, se.Key)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
