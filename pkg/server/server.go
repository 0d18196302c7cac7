// Package server exposes the orchestrator over HTTP. Job endpoints are
// synchronous: the response is the finished job's report. The caller's
// tenant comes from the X-Tenant-ID header.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/winkey1/fbbot/pkg/config"
	"github.com/winkey1/fbbot/pkg/logging"
	"github.com/winkey1/fbbot/pkg/media"
	"github.com/winkey1/fbbot/pkg/telemetry"
	"github.com/winkey1/fbbot/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("server")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize server logger, using stderr fallback: %v", err)
	}
}

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 32 << 20

// jobRunner is the orchestrator surface the server drives.
type jobRunner interface {
	CreateSessions(tenantID string, accounts []types.Account, concurrency int) (*types.Report, error)
	JoinGroups(tenantID string, sessionNames, groupLinks []string, concurrency, groupsPerSession int) (*types.Report, error)
	PostAndComment(tenantID string, sessionNames []string, content types.PostContent, concurrency int) (*types.Report, error)
	StopAll()
}

// Server wires the HTTP handlers for the job API.
type Server struct {
	cfg       *config.Config
	runner    jobRunner
	media     *media.Processor
	validator *validator.Validate
}

// New constructs the API server.
func New(cfg *config.Config, runner jobRunner, processor *media.Processor) *Server {
	return &Server{
		cfg:       cfg,
		runner:    runner,
		media:     processor,
		validator: validator.New(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs/sessions", s.handleCreateSessions)
		r.Post("/jobs/join", s.handleJoinGroups)
		r.Post("/jobs/post", s.handlePostAndComment)
		r.Post("/stop", s.handleStopAll)
	})

	return r
}

type createSessionsRequest struct {
	Accounts    []types.Account `json:"accounts" validate:"required,min=1,dive"`
	Concurrency int             `json:"concurrency" validate:"gte=0"`
}

func (s *Server) handleCreateSessions(w http.ResponseWriter, r *http.Request) {
	var req createSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		http.Error(w, extractValidationErrors(err), http.StatusBadRequest)
		return
	}

	tenant := tenantFromRequest(r)
	debugLog.Infof("createSessions request: tenant %s, %d account(s)", tenant, len(req.Accounts))

	report, err := s.runner.CreateSessions(tenant, req.Accounts, req.Concurrency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type joinGroupsRequest struct {
	SessionNames     []string `json:"session_names" validate:"required,min=1"`
	GroupLinks       []string `json:"group_links" validate:"required,min=1"`
	Concurrency      int      `json:"concurrency" validate:"gte=0"`
	GroupsPerSession int      `json:"groups_per_session" validate:"gte=0"`
}

func (s *Server) handleJoinGroups(w http.ResponseWriter, r *http.Request) {
	var req joinGroupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		http.Error(w, extractValidationErrors(err), http.StatusBadRequest)
		return
	}

	tenant := tenantFromRequest(r)
	debugLog.Infof("joinGroups request: tenant %s, %d session(s), %d link(s)", tenant, len(req.SessionNames), len(req.GroupLinks))

	report, err := s.runner.JoinGroups(tenant, req.SessionNames, req.GroupLinks, req.Concurrency, req.GroupsPerSession)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type postRequest struct {
	SessionNames []string `validate:"required,min=1"`
	Caption      string
	Comment      string `validate:"required"`
	Concurrency  int    `validate:"gte=0"`
}

// handlePostAndComment accepts multipart form data: an "image" file
// plus "session_names" (repeatable), "comment", optional "caption",
// and optional "concurrency" fields. The image is normalized into the
// work directory for the duration of the job.
func (s *Server) handlePostAndComment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	req, err := postRequestFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		http.Error(w, extractValidationErrors(err), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	imagePath, err := s.media.Stage(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer s.media.Discard(imagePath)

	tenant := tenantFromRequest(r)
	debugLog.Infof("postAndComment request: tenant %s, %d session(s)", tenant, len(req.SessionNames))

	content := types.PostContent{
		ImagePath: imagePath,
		Caption:   req.Caption,
		Comment:   req.Comment,
	}
	report, err := s.runner.PostAndComment(tenant, req.SessionNames, content, req.Concurrency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	debugLog.Infof("stopAll request")
	s.runner.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// postRequestFromForm pulls the non-file fields out of a parsed
// multipart form.
func postRequestFromForm(r *http.Request) (postRequest, error) {
	req := postRequest{
		SessionNames: r.MultipartForm.Value["session_names"],
		Caption:      r.FormValue("caption"),
		Comment:      r.FormValue("comment"),
	}

	if raw := r.FormValue("concurrency"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("invalid concurrency value '%s'", raw)
		}
		req.Concurrency = n
	}
	return req, nil
}

func tenantFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Tenant-ID"); v != "" {
		return v
	}
	return "default"
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
